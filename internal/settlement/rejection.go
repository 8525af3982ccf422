package settlement

// Rejection reasons a supplier can give. Retryable reasons describe
// conditions that may clear on their own, so the same supplier can be
// asked again later; the rest call for a different supplier.
var (
	ReasonPriceIncrease = "price_increase"
	ReasonOutOfStock    = "out_of_stock"
	ReasonCapacity      = "capacity"
	ReasonLeadTime      = "lead_time"
	ReasonDiscontinued  = "discontinued"
	ReasonOther         = "other"
)

var retryableReasons = map[string]bool{
	ReasonPriceIncrease: true,
	ReasonOutOfStock:    true,
	ReasonCapacity:      true,
	ReasonLeadTime:      true,
	ReasonDiscontinued:  false,
	ReasonOther:         false,
}

// RetryableRejection reports whether a rejection with this reason is
// worth retrying with the same supplier. Unknown reasons are treated
// like "other" and are not retryable.
func RetryableRejection(reason string) bool {
	return retryableReasons[reason]
}
