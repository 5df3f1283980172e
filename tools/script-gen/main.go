// script-gen emits a random but well-formed JSONL patch script on stdout,
// for demoing `genui serve`/`genui replay` and for stressing the stream
// processor with realistic noise (comment lines, blank lines, malformed
// JSON) mixed into valid patches.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/ohler55/ojg/oj"
)

var elementTypes = []string{"Card", "Text", "Button", "Input", "List", "Image"}

var propPool = map[string][]any{
	"title":   {"Order summary", "Welcome back", "Checkout"},
	"content": {"hi", "Thanks for your purchase", "Loading..."},
	"label":   {"Submit", "Cancel", "Refund"},
	"variant": {"primary", "secondary"},
}

func main() {
	elements := flag.Int("elements", 6, "Number of elements to emit")
	noise := flag.Float64("noise", 0.2, "Probability of a noise line between patches")
	dataPatches := flag.Int("data", 3, "Number of dataPath patches to mix in")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	keys := make([]string, *elements)
	for i := range keys {
		keys[i] = fmt.Sprintf("el%d", i)
	}

	emit(rng, *noise, map[string]any{"op": "set", "path": "/root", "value": keys[0]})
	for i, key := range keys {
		el := map[string]any{
			"key":   key,
			"type":  elementTypes[rng.Intn(len(elementTypes))],
			"props": randomProps(rng),
		}
		// Children may reference keys not emitted yet; consumers must
		// tolerate the dangling window.
		if i+1 < len(keys) {
			el["children"] = []any{keys[i+1]}
		}
		emit(rng, *noise, map[string]any{"op": "add", "path": "/elements/" + key, "value": el})

		// Occasionally follow up with a field patch for an element that
		// already exists.
		if rng.Float64() < 0.4 {
			emit(rng, *noise, map[string]any{
				"op":    "replace",
				"path":  fmt.Sprintf("/elements/%s/props/title", key),
				"value": fmt.Sprintf("Updated %s", key),
			})
		}
	}

	for i := 0; i < *dataPatches; i++ {
		emit(rng, *noise, map[string]any{
			"op":       "set",
			"dataPath": fmt.Sprintf("/form/field%d", i),
			"value":    rng.Intn(100),
		})
	}
}

func randomProps(rng *rand.Rand) map[string]any {
	props := map[string]any{}
	for name, values := range propPool {
		if rng.Float64() < 0.5 {
			props[name] = values[rng.Intn(len(values))]
		}
	}
	return props
}

func emit(rng *rand.Rand, noise float64, patch map[string]any) {
	if rng.Float64() < noise {
		switch rng.Intn(3) {
		case 0:
			fmt.Println("// model commentary that consumers must skip")
		case 1:
			fmt.Println()
		case 2:
			fmt.Println("{truncated json")
		}
	}
	fmt.Println(oj.JSON(patch, &oj.Options{Sort: true}))
}
