package intake

import (
	"bytes"
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"inkwell/internal/logging"
	"inkwell/internal/storage"
)

// inspectPageCount fetches the uploaded object and counts its pages. Failures
// downgrade to an unknown page count rather than rejecting the request; the
// tier decision then rests on size alone.
func (r *Router) inspectPageCount(ctx context.Context, bucket, key string) int {
	if r.objects == nil {
		return 0
	}
	rc, err := r.objects.Get(ctx, bucket, key)
	if err != nil {
		r.warnInspect(key, err)
		return 0
	}
	data, err := storage.ReadAll(rc)
	if err != nil {
		r.warnInspect(key, err)
		return 0
	}
	count, err := countPDFPages(data)
	if err != nil {
		r.warnInspect(key, err)
		return 0
	}
	return count
}

func (r *Router) warnInspect(key string, err error) {
	logging.WarnWithContext(r.logger, "page inspection skipped", "intake_inspect_failed",
		logging.String("source_key", key),
		logging.Error(err),
		logging.String(logging.FieldImpact, "tier decided on size alone"),
	)
}

func countPDFPages(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}
