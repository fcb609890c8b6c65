package livability

import "context"

// JoinRequest carries every key a joiner may need. Each joiner reads only its
// own key: city, ZIP, coordinate or address.
type JoinRequest struct {
	Ref   *Reference
	Match MatchResult
	// Address is the normalized address string for address-keyed services.
	Address string
}

// Joiner maps a match to a metric record from one data source.
// ErrNoData (possibly wrapped) means the source had no row for the key; any
// other error is an upstream failure. Both leave the metric absent.
type Joiner interface {
	Kind() Kind
	Join(ctx context.Context, req JoinRequest) (Metric, error)
}
