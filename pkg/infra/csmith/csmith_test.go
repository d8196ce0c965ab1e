package csmith

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestOptions(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(1))}
	opts := g.options()

	t.Run("fixed options always present", func(t *testing.T) {
		joined := strings.Join(opts, " ")
		for _, fixed := range fixedOptions {
			gt.V(t, strings.Contains(joined, fixed)).Equal(true)
		}
	})

	t.Run("every pool feature is decided one way", func(t *testing.T) {
		for _, feature := range optionPool {
			on := false
			off := false
			for _, opt := range opts {
				if opt == "--"+feature {
					on = true
				}
				if opt == "--no-"+feature {
					off = true
				}
			}
			gt.V(t, on != off).Equal(true)
		}
	})
}

func TestOptionsConcurrent(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(1))}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				opts := g.options()
				gt.Equal(t, len(opts), len(fixedOptions)+len(optionPool))
			}
		}()
	}
	wg.Wait()
}
