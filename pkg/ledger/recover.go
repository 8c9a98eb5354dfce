// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Jeremy Hahn
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"crypto/subtle"
	"fmt"
	"sort"

	"github.com/jeremyhahn/go-thresholdkms/pkg/dkg"
	"github.com/jeremyhahn/go-thresholdkms/pkg/metrics"
	"github.com/pkg/errors"
)

// Roster maps participants to groups and weights. policy.Config implements
// it.
type Roster interface {
	GroupOf(id int) (string, bool)
	GroupWeight(group string) int
	VetoWeight(id int) int
}

// soloRoster treats every participant as its own group of weight 1.
type soloRoster struct{}

func (soloRoster) GroupOf(id int) (string, bool) { return fmt.Sprintf("participant-%d", id), true }
func (soloRoster) GroupWeight(string) int        { return 1 }
func (soloRoster) VetoWeight(int) int            { return 1 }

// Rules configure Recover.
type Rules struct {
	// Roster assigns groups and weights. Nil treats every participant as
	// its own group of weight 1.
	Roster Roster

	// RequiredWeight is the approving group weight needed. It must be at
	// least 1.
	RequiredWeight int

	// MinApprovers is the number of distinct approving participants needed
	// on top of the weight. Zero means no count requirement.
	MinApprovers int

	// VetoThreshold is the veto weight that blocks recovery. Zero
	// disables vetoes.
	VetoThreshold int

	// Metrics counts token and recovery outcomes. Optional.
	Metrics *metrics.Collector
}

// Validate rejects rules that would permit recovery with no approval.
func (r Rules) Validate() error {
	if r.RequiredWeight < 1 {
		return errors.Wrapf(ErrInvalidRules, "required weight %d", r.RequiredWeight)
	}
	if r.MinApprovers < 0 || r.VetoThreshold < 0 {
		return errors.Wrap(ErrInvalidRules, "negative threshold")
	}
	return nil
}

func (r Rules) roster() Roster {
	if r.Roster == nil {
		return soloRoster{}
	}
	return r.Roster
}

// Presentation is a token offered by a participant.
type Presentation struct {
	ID    int
	Token []byte
}

// Classification sorts presentations into approvals, vetoes and rejects.
// Repeated presentations of the same valid token count once.
type Classification struct {
	Approvers []int
	Vetoers   []int
	Rejected  []Rejection
}

// Classify matches each token against the participant's two published
// commitments. Tokens matching neither are rejected with ErrInvalidToken
// and excluded from counting.
func (l *Ledger) Classify(presented []Presentation) *Classification {
	approvers := make(map[int]bool)
	vetoers := make(map[int]bool)
	out := &Classification{}

	for i, p := range presented {
		kind, ok := l.match(p.ID, p.Token)
		if !ok {
			out.Rejected = append(out.Rejected, Rejection{
				Index: i,
				ID:    p.ID,
				Err:   errors.Wrapf(ErrInvalidToken, "participant %d", p.ID),
			})
			continue
		}
		if kind == KindApprove {
			approvers[p.ID] = true
		} else {
			vetoers[p.ID] = true
		}
	}
	out.Approvers = sortedInts(approvers)
	out.Vetoers = sortedInts(vetoers)
	return out
}

func (l *Ledger) match(id int, token []byte) (Kind, bool) {
	if len(token) == 0 {
		return 0, false
	}
	c := TokenCommitment(l.suite, token)
	for _, kind := range Kinds {
		i, ok := l.index[entryKey{id, kind}]
		if !ok {
			continue
		}
		if subtle.ConstantTimeCompare(c, l.entries[i].Commitment) == 1 {
			return kind, true
		}
	}
	return 0, false
}

// Decision is the outcome of a successful recovery check.
type Decision struct {
	*Classification

	// Groups are the distinct approving groups in sorted order.
	Groups []string

	// Weight is the approving group weight.
	Weight int

	// VetoWeight is the weight of the valid veto tokens.
	VetoWeight int
}

// Recover applies the recovery rule: classify, then fail with *VetoError
// if the veto weight reaches VetoThreshold, then fail with *WeightError if
// the distinct approving groups weigh less than RequiredWeight, then with
// *dkg.QuorumError if fewer than MinApprovers participants approved.
// Vetoes are always evaluated first.
func (l *Ledger) Recover(presented []Presentation, rules Rules) (*Decision, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	cls := l.Classify(presented)
	for range cls.Approvers {
		rules.Metrics.RecordToken(KindApprove.String())
	}
	for range cls.Vetoers {
		rules.Metrics.RecordToken(KindVeto.String())
	}
	for range cls.Rejected {
		rules.Metrics.RecordToken("invalid")
	}

	roster := rules.roster()
	d := &Decision{Classification: cls}

	for _, id := range cls.Vetoers {
		d.VetoWeight += roster.VetoWeight(id)
	}
	if rules.VetoThreshold > 0 && d.VetoWeight >= rules.VetoThreshold {
		rules.Metrics.RecordRecovery(metrics.OutcomeVeto)
		return nil, &VetoError{Vetoers: cls.Vetoers, Weight: d.VetoWeight, Threshold: rules.VetoThreshold}
	}

	groups := make(map[string]bool)
	for _, id := range cls.Approvers {
		if g, ok := roster.GroupOf(id); ok {
			groups[g] = true
		}
	}
	for g := range groups {
		d.Groups = append(d.Groups, g)
		d.Weight += roster.GroupWeight(g)
	}
	sort.Strings(d.Groups)

	if d.Weight < rules.RequiredWeight {
		rules.Metrics.RecordRecovery(metrics.OutcomeQuorum)
		return nil, &WeightError{Groups: d.Groups, Weight: d.Weight, Required: rules.RequiredWeight}
	}
	if len(cls.Approvers) < rules.MinApprovers {
		rules.Metrics.RecordRecovery(metrics.OutcomeQuorum)
		return nil, dkg.NewQuorumError(len(cls.Approvers), rules.MinApprovers)
	}
	rules.Metrics.RecordRecovery(metrics.OutcomeSuccess)
	return d, nil
}
