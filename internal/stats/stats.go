// Package stats summarizes how each member of a pair rates restaurants.
package stats

import (
	"github.com/rotisserie/eris"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// Member aggregates one user's ratings.
type Member struct {
	UserID       string  `json:"user_id"`
	AverageScore float64 `json:"average_score"`
	Ratings      int     `json:"ratings"`
}

// Pair holds both members' aggregates and the pickiest eater: the member
// whose ratings average lower.
type Pair struct {
	PairID   string   `json:"pair_id"`
	Members  []Member `json:"members"`
	Pickiest string   `json:"pickiest"`
}

// Compute builds pair stats from a snapshot. Each rating contributes the
// mean of its four sub-scores; a member's average is the mean of those.
// Ratings by users outside the pair are ignored. A member who has rated
// nothing averages 0.
func Compute(snap *model.Snapshot) (*Pair, error) {
	if snap == nil || snap.Pair == nil {
		return nil, eris.New("stats: snapshot has no pair")
	}
	p := snap.Pair

	m1 := memberStats(p.User1ID, snap.Ratings)
	out := &Pair{PairID: p.ID, Members: []Member{m1}, Pickiest: m1.UserID}
	if p.User2ID == "" {
		return out, nil
	}

	m2 := memberStats(p.User2ID, snap.Ratings)
	out.Members = append(out.Members, m2)
	if m1.AverageScore >= m2.AverageScore {
		out.Pickiest = m2.UserID
	}
	return out, nil
}

func memberStats(userID string, ratings []model.Rating) Member {
	m := Member{UserID: userID}
	var total float64
	for _, r := range ratings {
		if r.UserID != userID {
			continue
		}
		total += r.Average()
		m.Ratings++
	}
	if m.Ratings > 0 {
		m.AverageScore = total / float64(m.Ratings)
	}
	return m
}
