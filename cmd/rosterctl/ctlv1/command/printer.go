// Copyright 2022 The jackal Authors
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

package command

import (
	"fmt"
	"io"
	"strings"

	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"gopkg.in/yaml.v2"
)

const (
	simpleOutput = "simple"
	yamlOutput   = "yaml"
)

type printer interface {
	RosterItems(owner string, items []*rostermodel.Item)
	RosterItemSet(owner string, itm *rostermodel.Item)
	RosterItemRemoved(owner, contact string)
	PrivacyLists(owner string, names []string, defaultList string)
	PrivacyList(owner string, l *privacymodel.List, isDefault bool)
	PrivacyCheck(owner, contact, kind string, allowed bool)
	Blocked(owner string, jids []string)
	Unblocked(owner string, jids []string)
	Transitions(rows []transitionRow)
}

type rosterItemView struct {
	JID          string   `yaml:"jid"`
	Name         string   `yaml:"name,omitempty"`
	Subscription string   `yaml:"subscription"`
	Groups       []string `yaml:"groups,omitempty"`
	PreApproved  bool     `yaml:"pre_approved,omitempty"`
}

type ruleView struct {
	Order     uint32   `yaml:"order"`
	Action    string   `yaml:"action"`
	Type      string   `yaml:"type,omitempty"`
	Value     string   `yaml:"value,omitempty"`
	AppliesTo []string `yaml:"applies_to,omitempty"`
}

type listView struct {
	Owner   string     `yaml:"owner"`
	Name    string     `yaml:"name"`
	Default bool       `yaml:"default"`
	Rules   []ruleView `yaml:"rules"`
}

type transitionRow struct {
	From     string `yaml:"from"`
	Presence string `yaml:"presence"`
	To       string `yaml:"to"`
	Changed  bool   `yaml:"changed"`
}

func newPrinter(output string, w io.Writer) (printer, error) {
	switch output {
	case simpleOutput, "":
		return &simplePrinter{w: w}, nil
	case yamlOutput:
		return &yamlPrinter{w: w}, nil
	}
	return nil, fmt.Errorf("unrecognized output format: %s", output)
}

func newRosterItemView(itm *rostermodel.Item) rosterItemView {
	return rosterItemView{
		JID:          itm.JID.String(),
		Name:         itm.Name,
		Subscription: itm.Subscription.String(),
		Groups:       itm.Groups,
		PreApproved:  itm.PreApproved,
	}
}

func newListView(owner string, l *privacymodel.List, isDefault bool) listView {
	lv := listView{
		Owner:   owner,
		Name:    l.Name,
		Default: isDefault,
		Rules:   make([]ruleView, 0, len(l.Rules)),
	}
	for _, r := range l.Rules {
		lv.Rules = append(lv.Rules, ruleView{
			Order:     r.Order,
			Action:    r.Action.String(),
			Type:      r.Kind.String(),
			Value:     r.Value,
			AppliesTo: r.AppliesTo.Names(),
		})
	}
	return lv
}

type simplePrinter struct {
	w io.Writer
}

func (p *simplePrinter) RosterItems(owner string, items []*rostermodel.Item) {
	if len(items) == 0 {
		p.printf("Roster of %s is empty\n", owner)
		return
	}
	for _, itm := range items {
		v := newRosterItemView(itm)
		p.printf("%s\t%s\t%s\t%s\n", v.JID, v.Subscription, v.Name, strings.Join(v.Groups, ","))
	}
}

func (p *simplePrinter) RosterItemSet(owner string, itm *rostermodel.Item) {
	p.printf("Roster item %s of %s updated (%s)\n", itm.JID.String(), owner, itm.Subscription)
}

func (p *simplePrinter) RosterItemRemoved(owner, contact string) {
	p.printf("Roster item %s of %s removed\n", contact, owner)
}

func (p *simplePrinter) PrivacyLists(owner string, names []string, defaultList string) {
	if len(names) == 0 {
		p.printf("%s has no privacy lists\n", owner)
		return
	}
	for _, name := range names {
		if name == defaultList {
			p.printf("%s (default)\n", name)
			continue
		}
		p.printf("%s\n", name)
	}
}

func (p *simplePrinter) PrivacyList(owner string, l *privacymodel.List, isDefault bool) {
	lv := newListView(owner, l, isDefault)
	if lv.Default {
		p.printf("%s (default)\n", lv.Name)
	} else {
		p.printf("%s\n", lv.Name)
	}
	for _, r := range lv.Rules {
		target := "*"
		if len(r.Type) > 0 {
			target = r.Type + "=" + r.Value
		}
		kinds := "all"
		if len(r.AppliesTo) > 0 {
			kinds = strings.Join(r.AppliesTo, ",")
		}
		p.printf("%d\t%s\t%s\t%s\n", r.Order, r.Action, target, kinds)
	}
}

func (p *simplePrinter) PrivacyCheck(owner, contact, kind string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	p.printf("%s %s between %s and %s\n", kind, outcome, owner, contact)
}

func (p *simplePrinter) Blocked(owner string, jids []string) {
	if len(jids) == 0 {
		p.printf("Nothing blocked for %s\n", owner)
		return
	}
	p.printf("Blocked %s for %s\n", strings.Join(jids, ", "), owner)
}

func (p *simplePrinter) Unblocked(owner string, jids []string) {
	if len(jids) == 0 {
		p.printf("Nothing unblocked for %s\n", owner)
		return
	}
	p.printf("Unblocked %s for %s\n", strings.Join(jids, ", "), owner)
}

func (p *simplePrinter) Transitions(rows []transitionRow) {
	for _, r := range rows {
		mark := ""
		if !r.Changed {
			mark = " (unchanged)"
		}
		p.printf("%s\t%s\t%s%s\n", r.From, r.Presence, r.To, mark)
	}
}

func (p *simplePrinter) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(p.w, format, a...)
}

type yamlPrinter struct {
	w io.Writer
}

func (p *yamlPrinter) RosterItems(owner string, items []*rostermodel.Item) {
	views := make([]rosterItemView, 0, len(items))
	for _, itm := range items {
		views = append(views, newRosterItemView(itm))
	}
	p.print(struct {
		Owner string           `yaml:"owner"`
		Items []rosterItemView `yaml:"items"`
	}{owner, views})
}

func (p *yamlPrinter) RosterItemSet(owner string, itm *rostermodel.Item) {
	p.print(struct {
		Owner string         `yaml:"owner"`
		Item  rosterItemView `yaml:"item"`
	}{owner, newRosterItemView(itm)})
}

func (p *yamlPrinter) RosterItemRemoved(owner, contact string) {
	p.print(struct {
		Owner   string `yaml:"owner"`
		Removed string `yaml:"removed"`
	}{owner, contact})
}

func (p *yamlPrinter) PrivacyLists(owner string, names []string, defaultList string) {
	p.print(struct {
		Owner   string   `yaml:"owner"`
		Default string   `yaml:"default,omitempty"`
		Lists   []string `yaml:"lists"`
	}{owner, defaultList, names})
}

func (p *yamlPrinter) PrivacyList(owner string, l *privacymodel.List, isDefault bool) {
	p.print(newListView(owner, l, isDefault))
}

func (p *yamlPrinter) PrivacyCheck(owner, contact, kind string, allowed bool) {
	p.print(struct {
		Owner   string `yaml:"owner"`
		Contact string `yaml:"contact"`
		Kind    string `yaml:"kind"`
		Allowed bool   `yaml:"allowed"`
	}{owner, contact, kind, allowed})
}

func (p *yamlPrinter) Blocked(owner string, jids []string) {
	p.print(struct {
		Owner   string   `yaml:"owner"`
		Blocked []string `yaml:"blocked"`
	}{owner, jids})
}

func (p *yamlPrinter) Unblocked(owner string, jids []string) {
	p.print(struct {
		Owner     string   `yaml:"owner"`
		Unblocked []string `yaml:"unblocked"`
	}{owner, jids})
}

func (p *yamlPrinter) Transitions(rows []transitionRow) {
	p.print(rows)
}

func (p *yamlPrinter) print(v interface{}) {
	b, err := yaml.Marshal(v)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	_, _ = p.w.Write(b)
}
