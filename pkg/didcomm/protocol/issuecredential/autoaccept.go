/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"

func (s *Service) shouldRespondToProposal(rec *Record) bool {
	switch exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept) {
	case exchange.AutoAcceptAlways:
		return true
	case exchange.AutoAcceptContentApproved:
		return previewsAgree(rec)
	default:
		return false
	}
}

func (s *Service) shouldRespondToOffer(rec *Record) bool {
	switch exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept) {
	case exchange.AutoAcceptAlways:
		return true
	case exchange.AutoAcceptContentApproved:
		return previewsAgree(rec)
	default:
		return false
	}
}

func (s *Service) shouldRespondToRequest(rec *Record) bool {
	switch exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept) {
	case exchange.AutoAcceptAlways:
		return true
	case exchange.AutoAcceptContentApproved:
		request, err := rec.request()
		if err != nil {
			return false
		}

		credDefID := rec.CredDefID
		if credDefID == "" && rec.ProposalMessage != nil {
			credDefID = rec.ProposalMessage.CredDefID
		}

		return credDefID != "" && credDefID == request.CredDefID
	default:
		return false
	}
}

func (s *Service) shouldRespondToCredential(rec *Record) bool {
	switch exchange.ComposeAutoAccept(rec.AutoAccept, s.autoAccept) {
	case exchange.AutoAcceptAlways:
		return true
	case exchange.AutoAcceptContentApproved:
		if rec.CredentialMessage == nil || len(rec.CredentialAttributes) == 0 {
			return false
		}

		cred, err := credentialFrom(rec.CredentialMessage)
		if err != nil {
			logger.Errorf("credential exchange %s: %v", rec.ID, err)

			return false
		}

		return CheckValuesMatch(cred.Values, rec.Values())
	default:
		return false
	}
}

// previewsAgree reports whether the proposal and the offer of rec describe the same credential.
func previewsAgree(rec *Record) bool {
	proposal, offer := rec.ProposalMessage, rec.OfferMessage
	if proposal == nil || proposal.CredentialProposal == nil || offer == nil {
		return false
	}

	proposed, offered := Values(proposal.CredentialProposal.Attributes), Values(offer.CredentialPreview.Attributes)

	return CheckValuesMatch(proposed, offered) && proposal.CredDefID == rec.CredDefID
}
