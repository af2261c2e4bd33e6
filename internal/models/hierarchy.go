package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Level is one tier of the administrative hierarchy, Country at 0 down to Village at 7.
type Level int

const (
	LevelCountry Level = iota
	LevelZone
	LevelState
	LevelDivision
	LevelDistrict
	LevelTehsil
	LevelPincode
	LevelVillage
)

const DefaultCountry = "India"

var levelNames = [...]string{"country", "zone", "state", "division", "district", "tehsil", "pincode", "village"}

var postTypes = [...]string{
	"President",
	"Zone Head",
	"State Head",
	"Division Head",
	"District Head",
	"Tehsil Head",
	"Pincode Head",
	"Village Head",
}

func (l Level) String() string {
	if l < LevelCountry || l > LevelVillage {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// PostType is the head post for a slot whose location is filled down to l.
func (l Level) PostType() string {
	if l < LevelCountry || l > LevelVillage {
		return ""
	}
	return postTypes[l]
}

// Child returns the next level down and false at the bottom of the hierarchy.
func (l Level) Child() (Level, bool) {
	if l >= LevelVillage {
		return l, false
	}
	return l + 1, true
}

// ParseLevel accepts the lower-case level name used in query strings.
func ParseLevel(name string) (Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return 0, false
}

// LevelForPost maps a post type back to its level.
func LevelForPost(post string) (Level, bool) {
	for i, p := range postTypes {
		if p == post {
			return Level(i), true
		}
	}
	return 0, false
}

// LocationPath is a prefix of Country > Zone > State > Division > District > Tehsil > Pincode > Village.
// It is shared by Location rows, Position slots and Application snapshots.
type LocationPath struct {
	Country  string `gorm:"size:100;default:'India'" json:"country"`
	Zone     string `gorm:"size:100;index" json:"zone"`
	State    string `gorm:"size:100;index" json:"state"`
	Division string `gorm:"size:100;index" json:"division"`
	District string `gorm:"size:100;index" json:"district"`
	Tehsil   string `gorm:"size:100;index" json:"tehsil"`
	Pincode  string `gorm:"size:20;index" json:"pincode"`
	Village  string `gorm:"size:150;index" json:"village"`
}

// Get returns the value stored at level l.
func (p LocationPath) Get(l Level) string {
	switch l {
	case LevelCountry:
		return p.Country
	case LevelZone:
		return p.Zone
	case LevelState:
		return p.State
	case LevelDivision:
		return p.Division
	case LevelDistrict:
		return p.District
	case LevelTehsil:
		return p.Tehsil
	case LevelPincode:
		return p.Pincode
	case LevelVillage:
		return p.Village
	}
	return ""
}

// With returns a copy of p with level l set to v.
func (p LocationPath) With(l Level, v string) LocationPath {
	switch l {
	case LevelCountry:
		p.Country = v
	case LevelZone:
		p.Zone = v
	case LevelState:
		p.State = v
	case LevelDivision:
		p.Division = v
	case LevelDistrict:
		p.District = v
	case LevelTehsil:
		p.Tehsil = v
	case LevelPincode:
		p.Pincode = v
	case LevelVillage:
		p.Village = v
	}
	return p
}

// Normalized trims every field and fills in the default country.
func (p LocationPath) Normalized() LocationPath {
	for l := LevelCountry; l <= LevelVillage; l++ {
		p = p.With(l, strings.TrimSpace(p.Get(l)))
	}
	if p.Country == "" {
		p.Country = DefaultCountry
	}
	return p
}

// Depth is the deepest filled level. A path with only a country has depth LevelCountry.
// It assumes the path is contiguous; call Validate first.
func (p LocationPath) Depth() Level {
	depth := LevelCountry
	for l := LevelZone; l <= LevelVillage; l++ {
		if p.Get(l) == "" {
			break
		}
		depth = l
	}
	return depth
}

// Validate rejects paths with a gap, e.g. a district without its division.
func (p LocationPath) Validate() error {
	missing := Level(-1)
	for l := LevelZone; l <= LevelVillage; l++ {
		if p.Get(l) == "" {
			if missing < 0 {
				missing = l
			}
			continue
		}
		if missing >= 0 {
			return fmt.Errorf("%s given without %s", l, missing)
		}
	}
	return nil
}

// Prefix keeps levels up to and including l and clears everything below.
func (p LocationPath) Prefix(l Level) LocationPath {
	out := LocationPath{}
	for i := LevelCountry; i <= l && i <= LevelVillage; i++ {
		out = out.With(i, p.Get(i))
	}
	return out
}

// Equal compares every level.
func (p LocationPath) Equal(o LocationPath) bool {
	for l := LevelCountry; l <= LevelVillage; l++ {
		if p.Get(l) != o.Get(l) {
			return false
		}
	}
	return true
}

// Designation is the human title of the head slot at this path.
func (p LocationPath) Designation() string {
	depth := p.Depth()
	if depth == LevelCountry {
		return "President of " + p.Country
	}
	return "Head of " + p.Get(depth)
}

var slugSpaces = regexp.MustCompile(`\s+`)

// PositionKey derives the stable identifier of the head slot at this path:
// pos_<post>_<country>_<zone>_..., lower-cased with whitespace collapsed to dashes.
// Resolving the same path twice yields the same key.
func (p LocationPath) PositionKey() string {
	parts := make([]string, 0, 8)
	for l := LevelCountry; l <= LevelVillage; l++ {
		v := p.Get(l)
		if v == "" {
			continue
		}
		parts = append(parts, slugSpaces.ReplaceAllString(strings.ToLower(v), "-"))
	}
	post := strings.ToLower(strings.ReplaceAll(p.Depth().PostType(), " ", "-"))
	return "pos_" + post + "_" + strings.Join(parts, "_")
}
