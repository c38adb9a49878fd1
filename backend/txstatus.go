package backend

// TxStatus is the one-byte transaction status reported in ReadyForQuery,
// per the wire protocol: 'I' idle, 'T' in a transaction, 'E' in a failed
// transaction awaiting ROLLBACK. It always comes from the backend
// connection's own bookkeeping, never from parsing client SQL text.
type TxStatus byte

const (
	TxIdle   TxStatus = 'I'
	TxInTx   TxStatus = 'T'
	TxFailed TxStatus = 'E'
)

func (s TxStatus) Byte() byte { return byte(s) }
