package nl2sql

import (
	"strings"
	"time"
)

// The detail prompt asks the model to pick apart a messy "name plus date
// plus location" string the frontend echoes back when a user taps one event
// from a previously shown list.
const detailPromptTemplate = `You are a PostgreSQL expert. The user has provided the following text to identify a single, specific event from a list they were shown: "{question}"
**Database Schema:**
{schema}
This text might be a messy combination of the event's name, location, and date.
**Your Task:**
1. Intelligently identify the core **event name**.
2. Intelligently identify the **date**, if one is mentioned in the text.
3. Write a precise SQL query to SELECT * from the events table that matches these extracted criteria.
4. If a date is found, add a condition like AND start_time::date = 'YYYY-MM-DD'.
5. Use ILIKE for the name match to be case-insensitive.
6. You **MUST** use LIMIT 1 to ensure only one result is returned.
7. Return ONLY the raw SQL query.

**Example 1:**
User Question: "AM volunteers shift 2 release on July 19, 2025"
SQL Output: SELECT * FROM events WHERE (name ILIKE '%AM volunteers shift 2 release%' OR programme ILIKE '%AM volunteers shift 2 release%' OR notes ILIKE '%AM volunteers shift 2 release%') AND start_time::date = '2025-07-19' ORDER BY start_time ASC;
`

const listPromptTemplate = `You are an expert PostgreSQL query generator for a Festival Events database. Convert the user's question into a precise SQL query.

**Database Schema:**
{schema}

**ADVANCED SEARCH RULES:**
1. **Keyword Logic (CRITICAL RULE):** For multi-word queries like "food fest" or "film screening", identify the core keywords (e.g. 'food', 'fest'). Each keyword should have its own search block (name ILIKE '%keyword%' OR programme ILIKE '%keyword%'). You **MUST** connect these distinct keyword blocks with AND to ensure all terms are present in the results.
    * **Example for "food fest":** WHERE (name ILIKE '%food%' OR programme ILIKE '%food%') AND (name ILIKE '%fest%' OR programme ILIKE '%festival%')
    * This ensures you find "food festivals", not just anything with "food" or anything with "fest".
2. **Date Handling (CRITICAL RULE):** If the user provides a date or asks about "today" or "tomorrow", you **MUST** search against the start_time column. The correct PostgreSQL syntax is start_time::date = 'YYYY-MM-DD'. Do **NOT** use ILIKE for dates.
    * **Example for a date query:** SELECT * FROM events WHERE start_time::date = '2025-07-20' ORDER BY start_time ASC;
3. **Split Locations:** For "SSH 3", generate WHERE (linked_space ILIKE '%SSH%' AND linked_space ILIKE '%3%').
4. **Broaden Search:** For "film screenings", create a broad OR search for film and screenings across name, programme, notes.
5. **Parentheses are Mandatory:** You MUST wrap OR conditions in parentheses when combining with AND. WHERE (A OR B) AND C.
6. **Multi-Field Search:** If a specific entity like "Festival Programming" is mentioned, search for it across workstream, programme, name, owner.

**Query Construction Rules:**
- Today's date is {today}.
- Use ILIKE for text-based, non-date searching.
- Always include ORDER BY start_time ASC.
- Select all columns: SELECT * FROM events.

**Security Rules:**
- ONLY generate SELECT queries. For any other request, return: SELECT 'Invalid request.';

**Response Format:**
- Return ONLY the raw SQL query.

**User Question:** "{question}"
`

func detailPrompt(question, schema string) string {
	return strings.NewReplacer(
		"{question}", question,
		"{schema}", schema,
	).Replace(detailPromptTemplate)
}

func listPrompt(question, schema string, today time.Time) string {
	return strings.NewReplacer(
		"{question}", question,
		"{schema}", schema,
		"{today}", today.Format("2006-01-02"),
	).Replace(listPromptTemplate)
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
