// Package attrs provides shared slog attribute constructors so log fields
// stay consistently named across handlers and services.
package attrs

import (
	"log/slog"

	id "custodia/pkg/domain"
)

func Principal(p id.Principal) slog.Attr {
	return slog.String("principal", p.String())
}

func Document(d id.DocumentID) slog.Attr {
	return slog.String("document_id", d.String())
}

func Proposal(p id.ProposalID) slog.Attr {
	return slog.String("proposal_id", p.String())
}

func RequestID(rid string) slog.Attr {
	return slog.String("request_id", rid)
}

func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
