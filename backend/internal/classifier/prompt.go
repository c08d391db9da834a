package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"knowledge-weaver/backend/internal/notes"
)

const systemPrompt = `You are an expert knowledge manager who excels at categorizing content. Your goal is to help users organize their knowledge effectively by assigning relevant, meaningful categories.

INSTRUCTIONS:
1. Analyze the note content and identify ALL relevant topics, themes, and concepts
2. Assign 1-4 categories that best represent the content (multiple categories are encouraged for rich content)
3. Use existing categories when they match, create new ones when needed
4. Be creative and specific - help users discover connections they might not see
5. NEVER use "Uncategorized" - every piece of content has some categorizable aspect

RESPONSE FORMATS:

For single category (existing):
{
    "categories": ["Web Development"]
}

For multiple categories (mix of existing and new):
{
    "categories": ["Machine Learning", "Research Methods"],
    "new_categories": [
        {
            "category": "Research Methods",
            "definition": "Methodologies and approaches for conducting research and analysis"
        }
    ]
}

For multiple new categories:
{
    "categories": ["Data Visualization", "Business Intelligence"],
    "new_categories": [
        {
            "category": "Data Visualization",
            "definition": "Techniques and tools for visual representation of data and insights"
        },
        {
            "category": "Business Intelligence",
            "definition": "Strategic use of data analytics for business decision making"
        }
    ]
}

Always provide meaningful, specific categories that help organize knowledge effectively.`

// buildUserPrompt renders the note, its page context, and the known categories
func buildUserPrompt(req Request, existing []notes.Category) string {
	url, title, domain := req.context()

	var ctxInfo strings.Builder
	fmt.Fprintf(&ctxInfo, "URL: %s", url)
	if title != "" {
		fmt.Fprintf(&ctxInfo, "\nPage Title: %s", title)
	}
	if domain != "" {
		fmt.Fprintf(&ctxInfo, "\nWebsite: %s", domain)
	}

	known := make([]string, 0, len(existing))
	for _, c := range existing {
		known = append(known, c.Category+": "+c.Definition)
	}
	list, _ := json.MarshalIndent(known, "", "  ")

	return fmt.Sprintf(`Note Content: "%s"

Webpage Context:
%s

Existing Categories:
%s

Please categorize this note considering both the content and the webpage context, and respond with JSON only.`,
		req.Content, ctxInfo.String(), list)
}
