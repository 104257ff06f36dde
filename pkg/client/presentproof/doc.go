/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof provides support for the Present Proof Protocol 1.0:
// https://github.com/hyperledger/aries-rfcs/blob/main/features/0037-present-proof/README.md.
//
// 1. Create your client:
//
// 	client, err := presentproof.New(ctx)
// 	if err != nil {
// 	 panic(err)
// 	}
//
// 2. Request a proof over a connection (verifier):
//
// 	rec, err := client.SendRequest(ctx, connectionID, &presentproof.ProofRequest{...}, "")
//
// 3. Answer the request with held credentials (prover):
//
// 	requests, err := client.GetExchanges(protocol.StateRequestReceived)
// 	_, err = client.AcceptRequest(ctx, requests[0].ID, nil, "")
//
// 4. Acknowledge the verified presentation (verifier):
//
// 	_, err = client.AcceptPresentation(ctx, rec.ID)
//
// Agents configured to auto accept proofs run steps 3 and 4 on their own.
package presentproof
