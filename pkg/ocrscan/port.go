package ocrscan

import (
	"context"

	"github.com/Abraxas-365/escolar/pkg/kernel"
)

// ScanFilter narrows List. An empty UserID lists every user's scans.
type ScanFilter struct {
	UserID       kernel.UserID
	DocumentType string
}

type ScanRepository interface {
	Save(ctx context.Context, scan Scan) error
	FindByID(ctx context.Context, id kernel.ScanID) (*Scan, error)
	List(ctx context.Context, filter ScanFilter, opts kernel.PaginationOptions) (kernel.Paginated[Scan], error)
}
