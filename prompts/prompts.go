// Package prompts holds the instructions sent to the language model at each
// step of script resolution and metadata generation.
package prompts

import "fmt"

const SearchOrNot = `You are a Yes/No decision agent. Decide whether the user query needs an internet search to be answered accurately and with up-to-date information.
Respond ONLY with "Yes" or "No".
Answer "Yes" if the query:
  * needs current data, recent information or real-time facts and statistics
  * involves current events, news or trends
  * asks for latest prices, availability or status
  * asks for the date or time
  * involves specific products, named entities or comparisons
  * needs confirmation of recent changes or updates
  * involves location-specific information
Answer "No" if the query is a basic conversational exchange.
Do not explain. Only respond with "Yes" or "No".`

const QueryGenerator = `You are a search query optimization agent. Turn the user query into an effective web search query.
Extract the key concepts and facts, drop filler words, and add search operators (site:, filetype:) only when they help.
Rules:
  - Respond ONLY with the search query string
  - No explanations, no surrounding quotes
Examples:
User: "What's the current price of a Tesla Model 3 in California?"
Response: tesla model 3 price california
User: "How do I make authentic Italian pasta from scratch?"
Response: authentic Italian pasta recipe homemade traditional`

const BestSearchResult = `You are a search result selection agent. Pick the single result most useful for answering the user prompt.
You will receive:
  - SEARCH_RESULTS: numbered search results, starting at index 0
  - USER_PROMPT: the original question
  - SEARCH_QUERY: the query that produced the results
Weigh relevance, source credibility, freshness and completeness, and choose the result an expert would open first.
Respond ONLY with the integer index of that result. No commentary.
Examples:
Input: [results], "What's Tesla's stock price?", "tesla stock price NASDAQ"
Response: 0
Input: [results], "How to make sourdough bread?", "sourdough bread recipe tutorial"
Response: 2`

const ContainsDataNeeded = `You are a data verification agent. Decide whether PAGE_TEXT contains reliable data sufficient to answer USER_PROMPT.
You will receive:
  - PAGE_TEXT: text of the chosen search result, retrieved with SEARCH_QUERY
  - USER_PROMPT: the original prompt
  - SEARCH_QUERY: the query used to find PAGE_TEXT
Judge only from PAGE_TEXT. Respond with exactly one token: "True" if it is sufficient, "False" otherwise.`

const scriptRules = `The script must:
  * open with a hook that grabs attention
  * stay clear and engaging and avoid hallucination
  * cover the most important points of the topic
  * fit a 60-second spoken delivery
  * use a professional yet conversational tone for social media
Output only the script, written to flow naturally when spoken. No commentary.`

const ContentWithContext = `You are a content generation agent. Write a spoken, news-style script for a brand's social media audience based on the CONTEXT and the USER_TOPIC.
Use only facts found in CONTEXT.
` + scriptRules

const ContentWithoutContext = `You are a content generation agent. Write a spoken, news-style script for a brand's social media audience about the USER_TOPIC.
` + scriptRules

// NeedsSearch builds the need-assessment prompt.
func NeedsSearch(topic string) string {
	return fmt.Sprintf("%s\nUSER QUERY: %s", SearchOrNot, topic)
}

// SearchQuery builds the query-rewriting prompt.
func SearchQuery(topic string) string {
	return fmt.Sprintf("%s\nUSER QUERY: %s", QueryGenerator, topic)
}

// SelectResult builds the candidate-selection prompt. results is the
// already formatted candidate list.
func SelectResult(results, topic, query string) string {
	return fmt.Sprintf("%s\nSEARCH_RESULTS: %s\nUSER_PROMPT: %s\nSEARCH_QUERY: %s", BestSearchResult, results, topic, query)
}

// VerifyContent builds the grounding verification prompt.
func VerifyContent(page, topic, query string) string {
	return fmt.Sprintf("%s\nPAGE_TEXT: %s\nUSER PROMPT: %s\nSEARCH QUERY: %s", ContainsDataNeeded, page, topic, query)
}

// ScriptWithContext builds the grounded script prompt.
func ScriptWithContext(topic, context string) string {
	return fmt.Sprintf("%s\n\nCONTEXT: %s\nUSER TOPIC: %s", ContentWithContext, context, topic)
}

// ScriptWithoutContext builds the ungrounded script prompt.
func ScriptWithoutContext(topic string) string {
	return fmt.Sprintf("%s\n%s", ContentWithoutContext, topic)
}
