package enums

// StockChangeType labels a stock movement.
type StockChangeType string

const (
	StockChangeIncoming StockChangeType = "INCOMING"
	StockChangeOutgoing StockChangeType = "OUTGOING"
)

func (c StockChangeType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known StockChangeType.
func (c StockChangeType) IsValid() bool {
	return c == StockChangeIncoming || c == StockChangeOutgoing
}
