package resolver_test

import (
	"fmt"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
)

func ExampleParseHunks() {
	content := `# Groceries
<<<<<<< HEAD
- oat milk
=======
- whole milk
>>>>>>> 1a2b3c4 (auto: update groceries.md)
- bread
`
	for _, h := range resolver.ParseHunks(content) {
		fmt.Printf("ours=%q theirs=%q from %q\n", h.Ours, h.Theirs, h.TheirsLabel)
	}
	fmt.Println(resolver.HasMarkers(content))
	// Output:
	// ours="- oat milk" theirs="- whole milk" from "1a2b3c4 (auto: update groceries.md)"
	// true
}
