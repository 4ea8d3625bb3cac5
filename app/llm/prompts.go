package llm

import (
	"fmt"

	"github.com/tlees/content-curator/app/database"
)

const shortSummaryInstruction = `You are an expert editor writing newsletter blurbs.
Summarize the following article in 2-3 sentences. Capture the core claim and why it
matters. Plain prose, no headings, no bullet points, no preamble.

Article:
%s`

const standardSummaryInstruction = `You are an expert editor writing newsletter digests.
Write a summary of the following article in 150-250 words. Structure it as:
- one sentence stating what the article is about
- the key arguments or findings
- anything notably novel or contrarian

Use Markdown. Do not repeat the article title. Do not add a preamble.

Article:
%s`

func instructionFor(summaryType database.SummaryType, text string) string {
	if summaryType == database.SummaryTypeShort {
		return fmt.Sprintf(shortSummaryInstruction, text)
	}
	return fmt.Sprintf(standardSummaryInstruction, text)
}
