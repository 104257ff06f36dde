/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
)

func (s *Service) shouldRespondToProposal(rec *Record) bool {
	switch exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept) {
	case exchange.AutoAcceptAlways:
		return true
	case exchange.AutoAcceptContentApproved:
		return proposalMatchesRequest(rec)
	default:
		return false
	}
}

func (s *Service) shouldRespondToRequest(rec *Record) bool {
	switch exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept) {
	case exchange.AutoAcceptAlways:
		return true
	case exchange.AutoAcceptContentApproved:
		return proposalMatchesRequest(rec)
	default:
		return false
	}
}

func (s *Service) shouldRespondToPresentation(rec *Record) bool {
	if !rec.IsVerified {
		return false
	}

	policy := exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept)

	return policy == exchange.AutoAcceptAlways || policy == exchange.AutoAcceptContentApproved
}

// proposalMatchesRequest reports whether the proposal and the request of rec ask for the same attribute and
// predicate names.
func proposalMatchesRequest(rec *Record) bool {
	if rec.ProposalMessage == nil || rec.RequestMessage == nil {
		return false
	}

	request, err := rec.ProofRequest()
	if err != nil {
		return false
	}

	preview := rec.ProposalMessage.PresentationProposal

	var proposed, requested, proposedPredicates, requestedPredicates []string

	for _, a := range preview.Attributes {
		proposed = append(proposed, a.Name)
	}

	for _, a := range request.RequestedAttributes {
		requested = append(requested, a.AttributeNames()...)
	}

	for _, p := range preview.Predicates {
		proposedPredicates = append(proposedPredicates, p.Name)
	}

	for _, p := range request.RequestedPredicates {
		requestedPredicates = append(requestedPredicates, p.Name)
	}

	return sameNames(proposed, requested) && sameNames(proposedPredicates, requestedPredicates)
}

func sameNames(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)

	return slices.Equal(a, b)
}
