package iclientrepo

import (
	"context"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/client"
)

// IClientRepository looks clients up by id.
type IClientRepository interface {
	GetByID(ctx context.Context, id int64) (client.Client, error)
}
