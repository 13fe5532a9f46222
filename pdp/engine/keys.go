package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

type digestInput struct {
	Resource string                         `json:"resource"`
	Action   string                         `json:"action"`
	Context  pdp_model.AuthorizationContext `json:"context"`
}

// ContextDigest hashes everything about a request except tenant and user,
// which appear in the decision key in clear. encoding/json sorts map keys, so
// equal attribute maps hash equally.
func ContextDigest(req *pdp_model.AuthorizationRequest) (string, error) {
	in := digestInput{Resource: req.Resource, Action: req.Action, Context: req.Context}
	if in.Context.Time != nil {
		t := in.Context.Time.UTC()
		in.Context.Time = &t
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

type correlationKey struct{}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
