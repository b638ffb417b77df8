package game

import "sort"

// rankPoints are the bonuses for the first three distinct correct
// submitters of a round.
var rankPoints = [...]int{5, 3, 2}

// applyScoring runs the round's scoring over the ordered submission log:
// correct submissions sorted by timestamp (stable, so equal stamps keep
// submission order), with the first three submitters awarded 5/3/2 points
// added to their cumulative score. Everyone else gets nothing.
func applyScoring(order []submission, players []*Player) []Award {
	correct := make([]submission, 0, len(order))
	for _, s := range order {
		if s.correct {
			correct = append(correct, s)
		}
	}
	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].at.Before(correct[j].at)
	})

	awarded := make([]Award, 0, len(rankPoints))
	seen := make(map[string]bool, len(rankPoints))
	for _, s := range correct {
		if len(awarded) == len(rankPoints) {
			break
		}
		if seen[s.playerID] {
			continue
		}
		seen[s.playerID] = true

		var player *Player
		for _, p := range players {
			if p.PlayerID == s.playerID {
				player = p
				break
			}
		}
		if player == nil {
			continue
		}
		points := rankPoints[len(awarded)]
		player.Score += points
		awarded = append(awarded, Award{
			PlayerID: s.playerID,
			Name:     player.Name,
			Points:   points,
			Position: len(awarded) + 1,
		})
	}
	return awarded
}
