package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/service/upstream"
	xhttp "ChartVerdict/pkg/http"
)

// RemoteClassifier posts the raw image to an HTTP analyzer service at POST /classify.
type RemoteClassifier struct {
	base *upstream.HTTPServiceBase
}

func NewRemoteClassifier(baseURL string, timeout time.Duration) *RemoteClassifier {
	return &RemoteClassifier{base: upstream.NewHTTPServiceBase("classifier", baseURL, timeout)}
}

func (r *RemoteClassifier) Classify(ctx context.Context, img models.ChartImage) (models.ChartSignal, error) {
	if len(img.Data) == 0 {
		return models.ChartSignal{}, domrepo.NewClassificationError("empty image", nil)
	}
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	var out output
	if err := r.base.PostBytes(ctx, "/classify", ct, img.Data, &out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.ChartSignal{}, domrepo.NewClassificationError("timeout", err)
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			var body output
			if json.Unmarshal([]byte(se.Body), &body) == nil && body.Error != "" {
				return models.ChartSignal{}, domrepo.NewClassificationError(body.Error, err)
			}
		}
		return models.ChartSignal{}, domrepo.NewClassificationError("remote classifier failed", err)
	}
	if out.Error != "" {
		return models.ChartSignal{}, domrepo.NewClassificationError(out.Error, nil)
	}
	sig, err := out.signal()
	if err != nil {
		return models.ChartSignal{}, domrepo.NewClassificationError("invalid output", err)
	}
	return sig, nil
}

var _ domrepo.ChartClassifier = (*RemoteClassifier)(nil)
