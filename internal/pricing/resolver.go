package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Exclusion records a proposed instance that did not survive resolution.
type Exclusion struct {
	InstanceID  string          `json:"instanceId"`
	PromotionID string          `json:"promotionId"`
	Name        string          `json:"name"`
	Group       Group           `json:"group"`
	// Subcategory is set when the channel scopes the group per subcategory.
	Subcategory string          `json:"subcategory,omitempty"`
	Percent     decimal.Decimal `json:"percent"`
	Reason      string          `json:"reason"`
}

// Resolution is the outcome of stacking resolution for one channel.
type Resolution struct {
	Winners    []Instance
	Exclusions []Exclusion
	Notes      []string
}

// Resolve applies the stacking rules of policy to the proposed instances. Rules run in
// a fixed order: group exclusivity, cross-group blocking, non-stackable pairs, then the
// channel cap. Resolve has no side effects and is deterministic for a given input.
func Resolve(policy Policy, instances []Instance) Resolution {
	var res Resolution
	pool := make([]Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.Definition == nil {
			res.exclude(inst, "no catalog definition")
			continue
		}
		pool = append(pool, inst)
	}
	sort.SliceStable(pool, func(i, j int) bool { return declaredBefore(pool[i], pool[j]) })

	pool = res.resolveGroups(policy, pool)
	pool = res.applyBlocking(pool)
	pool = res.removeConflicts(policy, pool)
	pool = res.applyChannelCap(policy, pool)

	sort.SliceStable(pool, func(i, j int) bool {
		gi, gj := pool[i].Definition.Group, pool[j].Definition.Group
		if gi != gj {
			return gi < gj
		}
		return declaredBefore(pool[i], pool[j])
	})
	res.Winners = pool
	return res
}

func declaredBefore(a, b Instance) bool {
	if a.Definition.order != b.Definition.order {
		return a.Definition.order < b.Definition.order
	}
	return a.ID < b.ID
}

// best returns the index of the highest discount; pool is in declaration order so the
// earliest declared instance wins ties.
func best(pool []Instance) int {
	idx := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].Percent.GreaterThan(pool[idx].Percent) {
			idx = i
		}
	}
	return idx
}

func (r *Resolution) exclude(inst Instance, reason string) {
	ex := Exclusion{InstanceID: inst.ID, Name: inst.name(), Percent: inst.Percent, Reason: reason}
	if inst.Definition != nil {
		ex.PromotionID = inst.Definition.ID
		ex.Group = inst.Definition.Group
	}
	r.Exclusions = append(r.Exclusions, ex)
}

func (r *Resolution) resolveGroups(policy Policy, pool []Instance) []Instance {
	var keys []string
	buckets := make(map[string][]Instance)
	for _, inst := range pool {
		key := policy.GroupKey(inst.Definition)
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], inst)
	}

	survivors := make([]Instance, 0, len(keys))
	for _, key := range keys {
		members := buckets[key]
		w := best(members)
		winner := members[w]
		group := winner.Definition.Group.String()
		for i, m := range members {
			if i == w {
				continue
			}
			if m.Percent.Equal(winner.Percent) {
				r.Notes = append(r.Notes, fmt.Sprintf("tie in group '%s' at %s%%: kept '%s' over '%s' by catalog order",
					key, winner.Percent, winner.name(), m.name()))
			}
			r.exclude(m, fmt.Sprintf("same group '%s' higher (%s%%)", group, winner.Percent))
			if key != group {
				last := &r.Exclusions[len(r.Exclusions)-1]
				last.Subcategory = m.Definition.Subcategory
			}
		}
		survivors = append(survivors, winner)
	}
	sort.SliceStable(survivors, func(i, j int) bool { return declaredBefore(survivors[i], survivors[j]) })
	return survivors
}

func (r *Resolution) applyBlocking(pool []Instance) []Instance {
	ranked := make([]Instance, len(pool))
	copy(ranked, pool)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Definition.Exclusive != b.Definition.Exclusive {
			return a.Definition.Exclusive
		}
		if !a.Percent.Equal(b.Percent) {
			return a.Percent.GreaterThan(b.Percent)
		}
		return declaredBefore(a, b)
	})

	removed := make([]bool, len(ranked))
	for i, inst := range ranked {
		if removed[i] {
			continue
		}
		def := inst.Definition
		for j, other := range ranked {
			if j == i || removed[j] {
				continue
			}
			switch {
			case def.Exclusive:
				removed[j] = true
				r.exclude(other, fmt.Sprintf("blocked by exclusive '%s'", def.Name))
			case def.blocks(other.Definition.Group):
				removed[j] = true
				r.exclude(other, fmt.Sprintf("blocked by %s", def.Group.Label()))
			}
		}
	}

	survivors := make([]Instance, 0, len(ranked))
	for i, inst := range ranked {
		if !removed[i] {
			survivors = append(survivors, inst)
		}
	}
	sort.SliceStable(survivors, func(i, j int) bool { return declaredBefore(survivors[i], survivors[j]) })
	return survivors
}

func (r *Resolution) removeConflicts(policy Policy, pool []Instance) []Instance {
	for _, pair := range policy.NonStackable {
		var left, right []Instance
		for _, inst := range pool {
			switch {
			case inst.Definition.HasTag(pair[0]):
				left = append(left, inst)
			case inst.Definition.HasTag(pair[1]):
				right = append(right, inst)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		keep, drop := left, right
		l, rr := left[best(left)], right[best(right)]
		if rr.Percent.GreaterThan(l.Percent) || (rr.Percent.Equal(l.Percent) && declaredBefore(rr, l)) {
			keep, drop = right, left
		}
		winner := keep[best(keep)]
		dropped := make(map[string]bool, len(drop))
		for _, inst := range drop {
			dropped[inst.ID] = true
			r.exclude(inst, fmt.Sprintf("not stackable with '%s' (%s%%)", winner.name(), winner.Percent))
		}
		pool = filter(pool, func(inst Instance) bool { return !dropped[inst.ID] })
	}
	return pool
}

func (r *Resolution) applyChannelCap(policy Policy, pool []Instance) []Instance {
	if !policy.SingleDiscount || len(pool) <= 1 {
		return pool
	}

	var members, public []Instance
	for _, inst := range pool {
		if inst.Definition.HasTag(TagMember) {
			members = append(members, inst)
		} else {
			public = append(public, inst)
		}
	}

	var kept []Instance
	var reason string
	if policy.MemberPlusOne && len(members) > 0 {
		kept = append(kept, members[best(members)])
		if len(public) > 0 {
			kept = append(kept, public[best(public)])
		}
		reason = "member deal plus one discount per booking"
	} else {
		kept = append(kept, pool[best(pool)])
		reason = "single discount per booking"
	}

	keep := make(map[string]bool, len(kept))
	names := ""
	for i, inst := range kept {
		keep[inst.ID] = true
		if i > 0 {
			names += ", "
		}
		names += fmt.Sprintf("'%s' (%s%%)", inst.name(), inst.Percent)
	}
	for _, inst := range pool {
		if !keep[inst.ID] {
			r.exclude(inst, fmt.Sprintf("%s: kept %s", reason, names))
		}
	}
	return filter(pool, func(inst Instance) bool { return keep[inst.ID] })
}

func filter(pool []Instance, keep func(Instance) bool) []Instance {
	out := pool[:0:0]
	for _, inst := range pool {
		if keep(inst) {
			out = append(out, inst)
		}
	}
	return out
}
