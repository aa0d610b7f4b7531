package exam

import (
	"fmt"
	"strings"
)

const contextRule = "--------------------------------------------------------"

// DefaultSystemPrompt pins the conversation to official secondary-certificate exam conventions.
const DefaultSystemPrompt = `You are an exam designer for the Lebanese General Secondary Certificate.
Every exam you produce follows the official conventions for its subject and branch:
- The exam opens with instructions to the student: how many problems to answer and what happens if more are answered.
- Main problems are numbered with Roman numerals (I, II, III), questions inside a problem with Arabic numerals (1, 2, 3) and sub-questions with Latin letters (a, b, c).
- Problems carry a short title describing their content.
- Questions mix knowledge levels (acquisition, application, analysis) and formats (closed, open-ended, multiple choice, document based).
- Language is clear, concise and free of ambiguity.
Write mathematics with $...$ and $$...$$ delimiters.`

func planPrompt(context string, message string) string {
	var b strings.Builder
	b.WriteString("You are an expert exam designer. Your task is to design a structured exam plan based on the user's request and the provided reference context.\n")
	b.WriteString("Keep it a general plan, do not go into details.\n\n")
	fmt.Fprintf(&b, "---\nREFERENCE CONTEXT (use only if relevant):\n%s\n---\n\n", context)
	fmt.Fprintf(&b, "---\nUSER REQUEST:\n%s\n---\n\n", message)
	b.WriteString(`Return a single JSON object with this exact schema (no extra fields):
{
  "exercises": {
    "1": {
      "topic": str,
      "grade": str,
      "description": str,
      "general_question": str,
      "subquestions": list[str]
    },
    ...
  }
}

Guidelines:
- Be concise, clear, and relevant.
- Do NOT hallucinate information.
- Use only the context and user request.
- Output only valid JSON, no commentary.

JSON:`)
	return b.String()
}

func filterPrompt(exerciseJSON string, context string) string {
	var b strings.Builder
	b.WriteString("You are given a set of exam exercises and a context of previous exams.\n")
	b.WriteString("Your task is to keep only the exercises that are relevant to the given exercise.\n\n")
	b.WriteString("1. Analyze the provided context of previous exams and exercises.\n")
	b.WriteString("2. Identify which exercises closely match the topic or subject of the given exercise.\n")
	b.WriteString("3. Keep the exercises that are relevant to the topic and to the grade of the given exercise.\n\n")
	fmt.Fprintf(&b, "---\nEXERCISE TOPIC:\n%s\n---\n\n", exerciseJSON)
	fmt.Fprintf(&b, "---\nEXAMS AND EXERCISES:\n%s\n---\n", context)
	b.WriteString("Return the full text of the matching exercises. No JSON, only the text of the exercises.\n")
	return b.String()
}

func fillPrompt(exerciseJSON string, filtered string) string {
	var b strings.Builder
	b.WriteString("You are tasked with generating a single exercise by reasoning through the following steps:\n\n")
	b.WriteString("1. From the provided context of previous exams and exercises, identify the exercises that closely match the topic or subject of the given exercise.\n")
	b.WriteString("2. Analyze how exercises in the context are structured: how many sub-questions they contain, what level of detail is expected, and the typical format.\n")
	b.WriteString("3. Use that insight to generate ONE new exercise that aligns with the topic and structure of the provided exercise JSON.\n\n")
	fmt.Fprintf(&b, "---\nEXERCISE TOPIC:\n%s\n---\n\n", exerciseJSON)
	fmt.Fprintf(&b, "---\nPREVIOUS EXAMS AND EXERCISES:\n%s\n---\n", filtered)
	return b.String()
}

func compilePrompt(exam string) string {
	var b strings.Builder
	b.WriteString("You are an expert exam designer. Your task is to reformat the exam into a well-structured document with clear headings and sections.\n\n")
	fmt.Fprintf(&b, "---\nEXAM:\n%s\n---\n\n", exam)
	b.WriteString("Delimiters: use $…$, $$…$$ instead of \\( … \\) or \\[ … \\].\n")
	b.WriteString("Return only the exam in text format")
	return b.String()
}

// clarificationSentinel is the whole reply when nothing is missing from the request.
const clarificationSentinel = "CLEAR"

func clarificationPrompt(message string) string {
	var b strings.Builder
	b.WriteString("You are an educational assistant helping a student prepare for exams. ")
	b.WriteString("Evaluate the following user request and check whether any key information is missing or unclear. ")
	b.WriteString("Determine whether the request includes:\n")
	b.WriteString("1. Whether the user wants an exam-style format or a specific number of questions.\n")
	b.WriteString("2. The subject area (e.g., math, physics, chemistry).\n")
	b.WriteString("3. Whether the user wants coverage of all topics in the subject or only specific lessons.\n")
	b.WriteString("4. The user's grade or class level.\n\n")
	b.WriteString("If any of these elements are missing or ambiguous, respond with a short and friendly welcome (e.g., 'Sure, I can help!') ")
	b.WriteString("followed by one or more follow-up questions, each on its own line. Only the welcome and the questions, no extra commentary. ")
	fmt.Fprintf(&b, "If all necessary information is present and unambiguous, respond with ONLY the word '%s'.\n\n", clarificationSentinel)
	b.WriteString(`Examples:
--------------------------------------------------
USER REQUEST: 'Can you give me 10 chemistry questions on acids and bases for grade 10?'
RESPONSE: CLEAR

USER REQUEST: 'I need help preparing for my upcoming physics exam.'
RESPONSE:
Sure, I can help!
What grade or class level are you in?
Is there any specific topic in physics I should focus on, or are all topics included?
Do you want an exam-style format or a specific number of questions?

USER REQUEST: 'I want an exam in math.'
RESPONSE:
Of course, happy to help!
What grade or class level are you in?
Is there any specific topic in math I should focus on, or are all topics included?
Do you want an exam-style format or a specific number of questions?

USER REQUEST: 'Can I get some practice questions on chemical reactions?'
RESPONSE:
Sure thing!
What subject is this for (e.g., chemistry)?
What grade or class level are you in?
Is there any specific topic you want to focus on, or should I include all topics?
Do you want an exam-style format or a specific number of questions?
--------------------------------------------------

`)
	fmt.Fprintf(&b, "---\nUSER REQUEST:\n%s\n---\nYour reply:", message)
	return b.String()
}

func resumePrompt(summary string) string {
	return "You are an educational assistant helping a student prepare for exams.\n" +
		"Given the excerpts from the recent conversation (delimited by ---),\n" +
		"write **one** short, engaging question that would smoothly continue the tutoring session.\n" +
		"---\n" + summary + "\n---\nNext question:"
}
