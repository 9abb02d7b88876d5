package domain

// DispositionQuantities are the quantities an outbound or first-station submission
// reports per disposition. Nil means the disposition was not supplied.
type DispositionQuantities struct {
	Good *int `json:"good,omitempty"`
	Bad  *int `json:"bad,omitempty"`
}

// Total returns good + bad, treating absent values as zero.
func (q DispositionQuantities) Total() int {
	return valueOrZero(q.Good) + valueOrZero(q.Bad)
}

// Validate checks that no quantity is negative and at least one is positive.
func (q DispositionQuantities) Validate() error {
	if valueOrZero(q.Good) < 0 || valueOrZero(q.Bad) < 0 {
		return ErrInvalidQuantity
	}
	if valueOrZero(q.Good) == 0 && valueOrZero(q.Bad) == 0 {
		return ErrNoQuantity
	}
	return nil
}

// Reconcile enforces good + bad == inboundTotal exactly.
func Reconcile(inboundTotal int, q DispositionQuantities) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if actual := q.Total(); actual != inboundTotal {
		return &MismatchError{Expected: inboundTotal, Actual: actual}
	}
	return nil
}

// ReconcileResult describes how a reconciliation was decided.
type ReconcileResult struct {
	Expected *int
	Actual   int

	// Degraded is set when the inbound total was unknown and the check was skipped.
	Degraded bool
}

// ReconcileKnown reconciles against an inbound total that may be unknown.
// An unknown total bypasses the conservation check and reports Degraded; the
// caller is expected to log that as a degraded-mode operation.
func ReconcileKnown(inboundTotal *int, q DispositionQuantities) (ReconcileResult, error) {
	if err := q.Validate(); err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{Expected: inboundTotal, Actual: q.Total()}
	if inboundTotal == nil {
		result.Degraded = true
		return result, nil
	}
	return result, Reconcile(*inboundTotal, q)
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
