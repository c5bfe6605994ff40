package ai

import (
	"strings"
)

// ComparisonPrompt frames a resume and a job description in delimited blocks.
func ComparisonPrompt(resume, jobDescription string) string {
	var sb strings.Builder
	sb.WriteString("Resume:\n---\n")
	sb.WriteString(resume)
	sb.WriteString("\n---\n\nJob Description:\n---\n")
	sb.WriteString(jobDescription)
	sb.WriteString("\n---\n\n")
	return sb.String()
}

// EditsPrompt builds the edit suggestion request. The gaps block is added only
// when gaps is non-empty.
func EditsPrompt(instruction, resume, jobDescription, gaps string) string {
	var sb strings.Builder
	if instruction != "" {
		sb.WriteString(instruction)
		sb.WriteString("\n\n")
	}
	sb.WriteString(ComparisonPrompt(resume, jobDescription))

	if strings.TrimSpace(gaps) != "" {
		sb.WriteString("A separate analysis indicated these gaps: \n---\n")
		sb.WriteString(strings.TrimSpace(gaps))
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}
