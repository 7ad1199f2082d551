package services

import "ballotproxy/contexts/governance/voting-engine/domain/entities"

// Winner returns the topic with the greatest vote count. Ties go to the lowest
// topic index: a later topic replaces the leader only with strictly more
// votes. With no votes cast at all, topic 0 wins. The boolean is false only
// for an empty topic list.
func Winner(topics []entities.Topic) (entities.Topic, bool) {
	if len(topics) == 0 {
		return entities.Topic{}, false
	}
	leader := topics[0]
	for _, topic := range topics[1:] {
		if topic.VoteCount > leader.VoteCount {
			leader = topic
		}
	}
	return leader, true
}

// SumVotes adds up per-topic counts.
func SumVotes(topics []entities.Topic) uint64 {
	var total uint64
	for _, topic := range topics {
		total += topic.VoteCount
	}
	return total
}
