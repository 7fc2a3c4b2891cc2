package pipeline

// Fixed values for extraction and serialization.
const (
	// DefaultQuantity is used when no quantity column holds a positive number.
	DefaultQuantity = 1

	// UnknownVendor is the placeholder the purchasing sheet uses for unassigned vendors.
	UnknownVendor = "(unknown)"

	// IDFormat numbers kept items over their sorted order.
	IDFormat = "bom-%03d"

	// GeneratedAtLayout is the metadata timestamp format (UTC, millisecond precision).
	GeneratedAtLayout = "2006-01-02T15:04:05.000Z"

	// ReportTopN limits the vendor and subassembly rankings in the console report.
	ReportTopN = 10
)
