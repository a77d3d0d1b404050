package beacon

// ProcessingResult is the outcome of inserting a block.
type ProcessingResult int

const (
	// Best means the block became the canonical head.
	Best ProcessingResult = iota + 1
	// NotBest means the block was stored on a fork.
	NotBest
	// NoParent means the parent of the block is unknown.
	NoParent
	// Exist means the block is already stored.
	Exist
	// ConsensusBreak means the block declares a wrong state root.
	ConsensusBreak
	// InvalidSlot means the block is not after its parent.
	InvalidSlot
	// TooManyAttestations means the block carries too many attestations.
	TooManyAttestations
	// InvalidAttestation means the block carries a malformed attestation.
	InvalidAttestation
)

func (r ProcessingResult) String() string {
	switch r {
	case Best:
		return "Best"
	case NotBest:
		return "NotBest"
	case NoParent:
		return "NoParent"
	case Exist:
		return "Exist"
	case ConsensusBreak:
		return "ConsensusBreak"
	case InvalidSlot:
		return "InvalidSlot"
	case TooManyAttestations:
		return "TooManyAttestations"
	case InvalidAttestation:
		return "InvalidAttestation"
	default:
		return "Unknown"
	}
}

// IsAccepted checks if the block was stored.
func (r ProcessingResult) IsAccepted() bool {
	return r == Best || r == NotBest
}

// ResultFromValidation maps a failed validation to a processing result.
func ResultFromValidation(v ValidationResult) ProcessingResult {
	switch v {
	case ValidationNoParent:
		return NoParent
	case ValidationExist:
		return Exist
	case ValidationInvalidSlot:
		return InvalidSlot
	case ValidationTooManyAttestations:
		return TooManyAttestations
	case ValidationInvalidAttestation:
		return InvalidAttestation
	case ValidationConsensusBreak:
		return ConsensusBreak
	default:
		return 0
	}
}
