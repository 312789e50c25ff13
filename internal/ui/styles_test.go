package ui

import "testing"

func TestRenderPlainWithoutColor(t *testing.T) {
	DisableColor()

	renderers := map[string]func(string) string{
		"pass":   RenderPass,
		"warn":   RenderWarn,
		"fail":   RenderFail,
		"accent": RenderAccent,
		"muted":  RenderMuted,
		"bold":   RenderBold,
	}
	for name, render := range renderers {
		if got := render("committed"); got != "committed" {
			t.Errorf("%s: got %q, want plain text", name, got)
		}
	}
}

func TestColorEnabledHonoursNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ColorEnabled() {
		t.Error("ColorEnabled() = true with NO_COLOR set")
	}
}
