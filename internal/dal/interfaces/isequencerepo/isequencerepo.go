package isequencerepo

import "github.com/corray333/backend-labs/serviceorder/internal/service/numbergen"

// ISequenceRepository allocates order number sequence values.
type ISequenceRepository interface {
	numbergen.Sequencer
}
