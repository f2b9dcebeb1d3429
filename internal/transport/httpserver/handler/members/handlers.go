package members

import (
	documentdomain "threegen/internal/domain/document"
	"threegen/pkg/logger"
)

type Handlers struct {
	Documents *documentdomain.Service
	log       logger.Logger
}

func New(documents *documentdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Documents: documents,
		log:       log,
	}
}
