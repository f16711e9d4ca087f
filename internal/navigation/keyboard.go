package navigation

import "fmt"

// Button labels.
const (
	PrevLabel = "⬅️ Previous"
	NextLabel = "Next ➡️"
)

// Button is one inline control. Data is the callback payload.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of buttons, top to bottom.
type Keyboard [][]Button

// Labels flattens the keyboard into its button texts.
func (k Keyboard) Labels() []string {
	var labels []string
	for _, row := range k {
		for _, b := range row {
			labels = append(labels, b.Text)
		}
	}
	return labels
}

// Build returns the single-row keyboard for current of total pages:
// previous (if current > 1), the indicator, then next (if current < total).
func Build(current, total int, owner string) (Keyboard, error) {
	if total < 1 || current < 1 || current > total {
		return nil, fmt.Errorf("%w: page %d of %d", ErrInvalidToken, current, total)
	}

	row := make([]Button, 0, 3)

	if current > 1 {
		data, err := Encode(Token{Direction: Prev, Page: current - 1, Total: total, Owner: owner})
		if err != nil {
			return nil, err
		}
		row = append(row, Button{Text: PrevLabel, Data: data})
	}

	row = append(row, Button{Text: fmt.Sprintf("%d/%d", current, total), Data: Noop})

	if current < total {
		data, err := Encode(Token{Direction: Next, Page: current + 1, Total: total, Owner: owner})
		if err != nil {
			return nil, err
		}
		row = append(row, Button{Text: NextLabel, Data: data})
	}

	return Keyboard{row}, nil
}
