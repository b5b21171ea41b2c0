package interview

import (
	"fmt"

	"github.com/devmob/onboard/internal/model"
)

// QuestionTitle is the title of every question embed.
const QuestionTitle = "Question"

func welcomeEmbed(member *model.Member, questions int) *model.Embed {
	return &model.Embed{
		Title: "Welcome to the family!",
		Description: fmt.Sprintf(
			"Hey %s! Before you start we want to know a little about you. "+
				"I will ask you %d questions. Answers don't have to be perfect or even 100%% true.",
			member.DisplayName(), questions,
		),
		Color: model.ColorBlue,
	}
}

func questionEmbed(q model.Question, index, total int) *model.Embed {
	return &model.Embed{
		Title:       QuestionTitle,
		Description: q.Prompt,
		Color:       model.ColorDarkBlue,
		Footer:      fmt.Sprintf("%d/%d", index+1, total),
	}
}

func completionEmbed(storyChannelID model.Snowflake) *model.Embed {
	desc := "Your story will be ready within a minute."
	if !storyChannelID.IsZero() {
		desc = fmt.Sprintf("Your story will be ready within a minute. You can read it in <#%s>.", storyChannelID)
	}
	return &model.Embed{
		Title:       "All done!",
		Description: desc,
		Color:       model.ColorGreen,
	}
}
