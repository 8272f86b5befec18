// Package batch parses many independent JSON documents concurrently. Each
// worker owns its own *shadowjson.Parser (and therefore its own
// ShadowTrie); Parsers are never shared or handed between goroutines
// mid-parse.
package batch

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/gauntlet-dev/shadowjson"
)

// A Result pairs a parsed document's index (matching the caller's input
// slice) with its root Node, assembly buffer, and any parse error.
type Result struct {
	Index    int
	Root     shadowjson.Node
	Assembly []shadowjson.Node
	Err      error
}

// ParseAll parses each of docs concurrently across a pool of workers,
// preserving each result's Index. Multi is Parser.ParseMulti if true,
// Parser.Parse otherwise. Results are returned in input order.
//
// workers bounds both the goroutine pool size and the number of
// concurrently live Parsers; each worker's Parser survives across
// documents so its ShadowTrie continues to amortise repeated key-sets
// within that worker's share of the batch.
func ParseAll(ctx context.Context, docs [][]byte, workers int, multi bool) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}
	if workers == 0 {
		return nil, nil
	}

	parsers := make(chan *shadowjson.Parser, workers)
	for i := 0; i < workers; i++ {
		parsers <- shadowjson.New(nil)
	}
	defer func() {
		close(parsers)
		for p := range parsers {
			p.Close()
		}
	}()

	results := make([]Result, len(docs))
	var wg sync.WaitGroup
	wg.Add(len(docs))

	pool, err := ants.NewPoolWithFunc(workers, func(arg any) {
		defer wg.Done()
		i := arg.(int)
		p := <-parsers
		defer func() { parsers <- p }()

		var root shadowjson.Node
		var perr error
		if multi {
			root, perr = p.ParseMulti(docs[i])
		} else {
			root, perr = p.Parse(docs[i])
		}
		res := Result{Index: i, Err: perr}
		if perr == nil {
			res.Root = root
			res.Assembly = append([]shadowjson.Node(nil), p.Assembly()...)
		}
		results[i] = res
	})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	if err := ctx.Err(); err != nil {
		wg.Add(-len(docs))
		return nil, err
	}
	for i := range docs {
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			results[i] = Result{Index: i, Err: err}
		}
	}
	wg.Wait()
	return results, ctx.Err()
}
