// Package copyproto implements the COPY FROM STDIN / COPY TO STDOUT
// sub-protocol described in spec.md §4.6: CSV ingest streamed in batches
// through backend.Conn.ExecuteMany, and CSV egest streamed as CopyData
// frames with per-row backpressure.
package copyproto

// Options controls CSV parsing and batching for one COPY operation,
// populated from the statement's WITH (...) clause over the defaults in
// config.Config.Copy.
type Options struct {
	Delimiter  rune
	NullString string
	BatchSize  int
	HasHeader  bool
}

// DefaultOptions returns the gateway-wide defaults a COPY statement's own
// WITH (...) clause can override field by field.
func DefaultOptions() Options {
	return Options{
		Delimiter:  ',',
		NullString: `\N`,
		BatchSize:  100,
	}
}
