package tdbuild

import "sync/atomic"

// Join waits for every build future outstanding on the Coordinator to
// settle (success or failure). Because a build callable may itself request
// further builds (e.g. via BuildContext.Coordinator), a single pass over the
// current future set is not enough: Join re-polls until two consecutive
// observations of the generation counter agree, i.e. no future was created
// while it was waiting.
func (c *Coordinator) Join() error {
	for {
		gen := atomic.LoadInt64(&c.generation)

		c.mu.Lock()
		pending := make([]*future, 0, len(c.futures))
		for _, f := range c.futures {
			pending = append(pending, f)
		}
		c.mu.Unlock()

		for _, f := range pending {
			<-f.done
		}

		if atomic.LoadInt64(&c.generation) == gen {
			return nil
		}
	}
}
