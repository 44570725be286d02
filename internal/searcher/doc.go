// Package searcher implements hybrid retrieval over the vector and graph stores.
//
// Three modes are supported:
//
//   - semantic: embed the query and rank entities by cosine similarity,
//     keeping hits at or above the score threshold (default 0.3)
//   - text: identical to semantic, since no keyword index is maintained
//   - graph: take up to five semantic seeds scoring at least 0.5 and return
//     their 1-hop graph neighbours, ordered by edge weight
//
// # Usage
//
//	s := searcher.New(embedGateway, vectorGateway, graphGateway, stateDB, logger)
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query: "where are sessions created",
//	    Mode:  searcher.ModeSemantic,
//	    Limit: 10,
//	    Filters: searcher.Filters{ProjectID: "proj"},
//	})
//
// Limit defaults to 10 and is capped at 100. Offset skips semantic hits and
// is ignored in graph mode.
//
// Search only fails on an empty query. Unreachable stores yield empty
// results, so callers cannot tell "nothing matched" from "store down"; the
// health endpoint reports store availability instead. Every query is
// recorded in the search history.
package searcher
