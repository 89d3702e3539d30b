package summarize

import "fmt"

// Mode selects the summary style.
type Mode string

const (
	ModeTLDR      Mode = "tldr"
	ModeExecutive Mode = "executive"
)

// ParseMode maps a request value to a Mode. Anything other than "tldr" is
// treated as executive, and an empty value means tldr.
func ParseMode(s string) Mode {
	switch s {
	case "", string(ModeTLDR):
		return ModeTLDR
	default:
		return ModeExecutive
	}
}

const tldrPromptTemplate = `Generate a concise TL;DR summary of this article in HTML format.

Article Title: %s
Article URL: %s

Article Content:
%s

Create a brief summary with:
1. A "Quick Summary" section with 3-5 key bullet points
2. Keep it concise - focus on the most important takeaways
3. Use clear, simple language

Format your response as clean HTML with:
- <h4> for section headers
- <ul> and <li> for bullet points
- <p> for paragraphs

Do not include the article title in your response (it's already shown in the modal).
`

const executivePromptTemplate = `Generate a comprehensive executive summary of this article in HTML format.

Article Title: %s
Article URL: %s

Article Content:
%s

Create a detailed executive summary with:
1. **Overview**: 3-5 bullet points covering the main points
2. **Key Insights**: The most important findings or developments
3. **Business Impact**: How this affects businesses, particularly SMBs
4. **Strategic Implications**: What decision-makers should know
5. **Actionable Takeaways**: Concrete next steps or considerations

Format your response as clean HTML with:
- <h4> for section headers
- <ul> and <li> for bullet points
- <p> for paragraphs
- <strong> for emphasis where appropriate

Do not include the article title in your response (it's already shown in the modal).
Focus on providing value for business decision-makers, especially small and medium business owners.
`

// BuildPrompt renders the prompt for mode.
func BuildPrompt(mode Mode, title, url, content string) string {
	if mode == ModeTLDR {
		return fmt.Sprintf(tldrPromptTemplate, title, url, content)
	}
	return fmt.Sprintf(executivePromptTemplate, title, url, content)
}
