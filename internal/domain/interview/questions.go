package interview

import "github.com/devmob/onboard/internal/model"

// Question keys referenced by the biography prompt.
const (
	KeyExpectation   = "expectation"
	KeyMafiaNickname = "mafiaNickname"
	KeySuperpower    = "superpower"
	KeyProsAndCons   = "prosAndCons"
)

// DefaultQuestions returns the built-in interview.
func DefaultQuestions() []model.Question {
	return []model.Question{
		{Key: KeyExpectation, Prompt: "What do you expect to get out of this server?"},
		{Key: KeyMafiaNickname, Prompt: "If you were a member of the Italian mafia, what would your nickname be?"},
		{Key: KeySuperpower, Prompt: "If you could have only one superpower, what would it be and why?"},
		{Key: KeyProsAndCons, Prompt: "What is your greatest strength, and your biggest flaw?"},
	}
}
