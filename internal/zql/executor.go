package zql

import (
	"io"
	"sort"
)

// Candidate is one document pulled from the storage scan.
type Candidate struct {
	ID  string
	Doc map[string]any
}

// DocStream is a lazy iterator over candidate documents, yielded in key
// order by the storage layer. Next returns io.EOF when exhausted. Callers
// abandon an in-flight query by ceasing to pull and calling Close.
type DocStream interface {
	Next() (Candidate, error)
	Close() error
}

// Result is one row of executor output. Projected is set only when the
// query has a returning clause, holding the requested fields in clause
// order with absent fields projected as Null.
type Result struct {
	ID        string
	Doc       map[string]any
	Projected []Value
}

// ExecOptions carries the per-query environment: variable bindings and the
// ancestor documents that ^/^^ references resolve against.
type ExecOptions struct {
	Bindings    map[string]Value
	Parent      map[string]any
	Grandparent map[string]any
}

// Execute runs a compiled query over a candidate stream: filter each
// candidate, stable-sort the matches on the order keys, then apply skip and
// limit, then project. Skip and limit apply strictly after ordering. Any
// stream or evaluation error is fatal to the query; no partial results are
// returned, so a limited result set is never silently truncated by a
// hidden failure.
//
// For a fixed document set the output is deterministic: the sort is stable
// and ties keep candidate-arrival order.
func Execute(q *Query, stream DocStream, opts *ExecOptions) ([]Result, error) {
	if opts == nil {
		opts = &ExecOptions{}
	}
	defer stream.Close()

	type match struct {
		cand Candidate
		keys []Value
	}

	var matches []match
	for {
		cand, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ctx := &Context{
			Doc:         cand.Doc,
			Parent:      opts.Parent,
			Grandparent: opts.Grandparent,
			Bindings:    opts.Bindings,
		}
		ok, err := Matches(q.Filter, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		m := match{cand: cand}
		if len(q.Order) > 0 {
			m.keys = make([]Value, len(q.Order))
			for i := range q.Order {
				m.keys[i] = ctx.Resolve(&q.Order[i].Field)
			}
		}
		matches = append(matches, m)
	}

	if len(q.Order) > 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			for k := range q.Order {
				c := matches[i].keys[k].Compare(matches[j].keys[k])
				if q.Order[k].Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	if q.Skip != nil {
		if *q.Skip >= len(matches) {
			matches = nil
		} else {
			matches = matches[*q.Skip:]
		}
	}
	if q.Limit != nil && *q.Limit < len(matches) {
		matches = matches[:*q.Limit]
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		res := Result{ID: m.cand.ID, Doc: m.cand.Doc}
		if len(q.Returning) > 0 {
			ctx := &Context{
				Doc:         m.cand.Doc,
				Parent:      opts.Parent,
				Grandparent: opts.Grandparent,
				Bindings:    opts.Bindings,
			}
			res.Projected = make([]Value, len(q.Returning))
			for j := range q.Returning {
				res.Projected[j] = ctx.Resolve(&q.Returning[j])
			}
		}
		results[i] = res
	}
	return results, nil
}

// sliceStream adapts an in-memory candidate slice to DocStream.
type sliceStream struct {
	cands []Candidate
	pos   int
}

// NewSliceStream returns a DocStream over an in-memory slice, mainly for
// tests and embedded use.
func NewSliceStream(cands []Candidate) DocStream {
	return &sliceStream{cands: cands}
}

func (s *sliceStream) Next() (Candidate, error) {
	if s.pos >= len(s.cands) {
		return Candidate{}, io.EOF
	}
	c := s.cands[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error { return nil }
