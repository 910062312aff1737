package checkout

import (
	"errors"

	"localharvest/internal/models"
)

// Transition defines a valid checkout state change.
type Transition struct {
	From models.CheckoutState
	To   models.CheckoutState
}

// validTransitions is the authoritative state machine definition.
var validTransitions = []Transition{
	// Opening the address form starts a checkout.
	{From: models.CheckoutIdle, To: models.CheckoutCollectingAddress},
	// Closing the form abandons it.
	{From: models.CheckoutCollectingAddress, To: models.CheckoutIdle},
	// A complete address moves the cart into finalization.
	{From: models.CheckoutCollectingAddress, To: models.CheckoutFinalizing},
	// Finalization either completes the order or fails before the
	// notification attempt, preserving the cart for retry.
	{From: models.CheckoutFinalizing, To: models.CheckoutCompleted},
	{From: models.CheckoutFinalizing, To: models.CheckoutFailed},
	// Terminal states reset when the user next opens the address form.
	{From: models.CheckoutCompleted, To: models.CheckoutCollectingAddress},
	{From: models.CheckoutFailed, To: models.CheckoutCollectingAddress},
}

type transitionKey struct {
	From models.CheckoutState
	To   models.CheckoutState
}

// Build a lookup map for O(1) validation.
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state.
func ValidTransitionsFrom(state models.CheckoutState) []models.CheckoutState {
	var nexts []models.CheckoutState
	seen := map[models.CheckoutState]bool{}
	for _, t := range validTransitions {
		if t.From == state && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks whether a cart may move from one state to another.
func CanTransition(from, to models.CheckoutState) error {
	if transitionMap[transitionKey{From: from, To: to}] {
		return nil
	}
	return errors.New(
		"invalid checkout transition: " + string(from) + " -> " + string(to) +
			". Valid transitions from " + string(from) + " are: " + describeValidFrom(from),
	)
}

func describeValidFrom(state models.CheckoutState) string {
	nexts := ValidTransitionsFrom(state)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}
