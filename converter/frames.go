package converter

import (
	"runtime"
	"sync"

	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/skin"
	"github.com/pkg/errors"
)

// poseFrames skins vertices for the first n frames of anm. Frames are
// independent, so they are posed by a pool of workers; the result is in
// frame order. The first failing frame is reported.
func (p *pipeline) poseFrames(engine *skin.Engine, anm *lol.AnmFile, vertices []skin.Vertex, n, workers int) ([][]skin.Vertex, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	results := make([][]skin.Vertex, n)
	errs := make([]error, n)

	frames := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range frames {
				posed, err := p.bind.Pose(anm, i)
				if err == nil {
					results[i], err = engine.PoseVertices(vertices, posed)
				}
				errs[i] = err
			}
		}()
	}
	for i := 0; i < n; i++ {
		frames <- i
	}
	close(frames)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
	}
	return results, nil
}
