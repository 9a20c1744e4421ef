package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// unrankedPosition is used only for bucket counting.
const unrankedPosition = 101

const notRankedLabel = "Not ranked"

// Rank is a SERP position in 1..100 or no position at all.
type Rank struct {
	Position int
	Ranked   bool
}

var Unranked = Rank{}

func RankAt(position int) Rank {
	if position < 1 || position > 100 {
		return Unranked
	}
	return Rank{Position: position, Ranked: true}
}

func (r Rank) effective() int {
	if !r.Ranked {
		return unrankedPosition
	}
	return r.Position
}

func (r Rank) String() string {
	if !r.Ranked {
		return notRankedLabel
	}
	return strconv.Itoa(r.Position)
}

func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Ranked {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(r.Position)), nil
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*r = Unranked
		return nil
	}
	if data[0] == '"' {
		// "Not ranked" from a rendered report
		*r = Unranked
		return nil
	}
	var pos int
	if err := json.Unmarshal(data, &pos); err != nil {
		return err
	}
	*r = RankAt(pos)
	return nil
}

// DisplayRank renders an unranked position as "Not ranked".
type DisplayRank Rank

func (d DisplayRank) MarshalJSON() ([]byte, error) {
	if !d.Ranked {
		return json.Marshal(notRankedLabel)
	}
	return []byte(strconv.Itoa(d.Position)), nil
}

func (d *DisplayRank) UnmarshalJSON(data []byte) error {
	var r Rank
	if err := r.UnmarshalJSON(data); err != nil {
		return err
	}
	*d = DisplayRank(r)
	return nil
}
