package prompts

import "fmt"

const metadataRules = `Rules:
  - Respond ONLY with the requested text
  - No explanations or additional text
  - Remove unnecessary words (articles, pronouns)`

// VideoTitle asks for a catchy title under 60 characters.
func VideoTitle(script string) string {
	return fmt.Sprintf(`You are a YouTube video title generator.
Generate a catchy title, shorter than 60 characters, for a video with this script:
%s
%s`, script, metadataRules)
}

// VideoDescription asks for a description under 150 characters.
func VideoDescription(script string) string {
	return fmt.Sprintf(`You are a YouTube video description generator.
Generate a description, shorter than 150 characters, for a video with this script:
%s
%s`, script, metadataRules)
}

// VideoTags asks for comma-separated keyword tags.
func VideoTags(script string) string {
	return fmt.Sprintf(`You are a YouTube video tag generator.
Generate keyword tags for a video with this script, as a single comma-separated line:
%s
%s`, script, metadataRules)
}

// VideoMetadata asks for title, description and tags in one structured answer.
func VideoMetadata(script string) string {
	return fmt.Sprintf(`You are a YouTube metadata generator for short vertical videos.
For the script below produce:
  - title: catchy, shorter than 60 characters
  - description: shorter than 150 characters
  - tags: 5 to 10 keywords related to the script
Script:
%s`, script)
}
