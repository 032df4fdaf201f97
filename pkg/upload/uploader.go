// Package upload runs the content pipeline: validate the payload, ensure the
// gateway account is funded, then construct, sign, and submit the content
// transaction. One core serves all three payload variants (file-backed,
// in-memory blob, JSON document) through the Source abstraction, so the
// funding and submission logic cannot drift between them.
//
// Each attempt moves strictly Validating -> Funding -> Submitting -> Done.
// No transition skips validation, funding is entered only after validation
// passes, and submission only after funding resolves. There is no retry loop
// and no resumable intermediate state: an attempt either ends in a retrieval
// URL or in an error message, always delivered as a Result, never as a fault.
package upload

import (
	"context"

	"go.uber.org/zap"

	"github.com/wordcelclub/upload-gateway/pkg/bundlr"
	"github.com/wordcelclub/upload-gateway/pkg/funding"
)

// Funder guards the account balance before submission. *funding.Manager is
// the production implementation.
type Funder interface {
	Ensure(ctx context.Context, byteLength int64, policy funding.Policy) error
}

// Submitter posts a signed content transaction. *bundlr.Client is the
// production implementation.
type Submitter interface {
	Submit(ctx context.Context, payload []byte, tags []bundlr.Tag) (string, error)
}

// Result is the terminal artifact of an upload attempt, rendered to callers
// as {"url": ..., "error": ...} with exactly one side set.
type Result struct {
	URL   *string `json:"url"`
	Error *string `json:"error"`
}

// Succeeded reports whether the attempt produced a retrieval URL.
func (r Result) Succeeded() bool {
	return r.URL != nil
}

func success(url string) Result { return Result{URL: &url} }

func failure(msg string) Result { return Result{Error: &msg} }

// Uploader is the shared pipeline core. gatewayURL is the retrieval base the
// transaction id is appended to (e.g. "https://arweave.net/").
type Uploader struct {
	funder     Funder
	node       Submitter
	gatewayURL string
}

// New wires an Uploader from its collaborators.
func New(funder Funder, node Submitter, gatewayURL string) *Uploader {
	return &Uploader{funder: funder, node: node, gatewayURL: gatewayURL}
}

// Upload runs one attempt end to end and always returns a Result; failures at
// any stage are converted to an error message, never propagated as a fault.
func (u *Uploader) Upload(ctx context.Context, src Source) Result {
	desc, err := src.Prepare()
	if err != nil {
		return failure(err.Error())
	}

	if err := u.funder.Ensure(ctx, desc.Length, desc.Policy); err != nil {
		return failure(err.Error())
	}

	payload, err := src.Bytes()
	if err != nil {
		zap.L().Error("failed to materialize payload", zap.Error(err))
		return failure(desc.FailureReport)
	}

	id, err := u.node.Submit(ctx, payload, desc.Tags)
	if err != nil || id == "" {
		zap.L().Error("content submission failed", zap.Error(err))
		return failure(desc.FailureReport)
	}

	return success(u.gatewayURL + id)
}
