package handler

import (
	documentdomain "threegen/internal/domain/document"
	"threegen/internal/transport/httpserver/handler/common"
	"threegen/internal/transport/httpserver/handler/members"
	"threegen/pkg/logger"
)

type Handlers struct {
	Common  *common.Handlers
	Members *members.Handlers
}

func New(documents *documentdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Common:  common.New(log),
		Members: members.New(documents, log),
	}
}
