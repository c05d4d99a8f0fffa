package domain

import "time"

// Deck owns an ordered collection of cards. A card belongs to exactly one deck.
type Deck struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Cards     []Card    `json:"cards"`
	CreatedAt time.Time `json:"createdAt"`
}

// DirtyCards returns the cards that still need a remote write.
func (d *Deck) DirtyCards() []Card {
	var dirty []Card
	for _, c := range d.Cards {
		if c.IsNew || c.IsModified {
			dirty = append(dirty, c)
		}
	}
	return dirty
}

// FindCard returns a pointer into the deck's card slice, or nil.
func (d *Deck) FindCard(id string) *Card {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return &d.Cards[i]
		}
	}
	return nil
}

// RemoveCard deletes a card from the deck in place. It returns false when the
// card is not in the deck.
func (d *Deck) RemoveCard(id string) bool {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			d.Cards = append(d.Cards[:i], d.Cards[i+1:]...)
			return true
		}
	}
	return false
}
