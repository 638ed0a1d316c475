package usecase

import "rubric-orchestrator/internal/domain"

// searchQueryPrefix precedes the subject of every query-generation turn.
const searchQueryPrefix = "Generate search query for: "

// noQueryAnswer is what the model returns when it cannot produce a query.
const noQueryAnswer = "0"

const queryPromptTemplate = `Below is a history of the conversation so far, and a new question or grading criterion that needs to be answered by searching in a knowledge base of course and assessment documents.
You have access to a search index with hundreds of documents.
Generate a search query based on the conversation and the new question.
Do not include cited source filenames and document names e.g info.txt or doc.pdf in the search query terms.
Do not include any text inside [] or <<>> in the search query terms.
Do not include any special characters like '+'.
If the question is not in English, translate the question to English before generating the search query.
If you cannot generate a search query, return just the number 0.
`

var queryPromptFewShots = []domain.Message{
	{Role: domain.RoleUser, Content: "What does the rubric say about citing sources?"},
	{Role: domain.RoleAssistant, Content: "Rubric requirements for citing sources"},
	{Role: domain.RoleUser, Content: "does the essay need a counterargument?"},
	{Role: domain.RoleAssistant, Content: "Essay counterargument requirement"},
}

const answerSystemTemplate = "You are an intelligent assistant helping evaluators assess work against rubric criteria. " +
	"Use 'you' to refer to the individual asking the questions even if they ask with 'I'. " +
	"Answer the following question using only the data provided in the sources below. " +
	"For tabular information return it as an html table. Do not return markdown format. " +
	"Each source has a name followed by colon and the actual information, always include the source name for each fact you use in the response. " +
	"If you cannot answer using the sources below, say you don't know. Use below example to answer"

const answerExemplarQuestion = `
'What is the deductible for the employee plan for a visit to Overlake in Bellevue?'

Sources:
info1.txt: deductibles depend on whether you are in-network or out-of-network. In-network deductibles are $500 for employee and $1000 for family. Out-of-network deductibles are $1000 for employee and $2000 for family.
info2.pdf: Overlake is in-network for the employee plan.
info3.pdf: Overlake is the name of the area that includes a park and ride near Bellevue.
info4.pdf: In-network institutions include Overlake, Swedish and others in the region
`

const answerExemplarAnswer = "In-network deductibles are $500 for employee and $1000 for family [info1.txt] and Overlake is in-network for the employee plan [info2.pdf][info4.pdf]."

// chatSystemTemplate has two slots: follow-up questions, then the injected prompt.
const chatSystemTemplate = `Assistant helps evaluators with questions about course material and assessment rubrics. Be brief in your answers.
Answer ONLY with the facts listed in the list of sources below. If there isn't enough information below, say you don't know. Do not generate answers that don't use the sources below. If asking a clarifying question to the user would help, ask the question.
For tabular information return it as an html table. Do not return markdown format. If the question is not in English, answer in the language used in the question.
Each source has a name followed by colon and the actual information, always include the source name for each fact you use in the response. Use square brackets to reference the source, for example [info1.txt]. Don't combine sources, list each source separately, for example [info1.txt][info2.pdf].
%s
%s
`

const followUpQuestionsPrompt = `Generate 3 very brief follow-up questions that the user would likely ask next.
Enclose the follow-up questions in double angle brackets. Example:
<<Which criteria carry the most weight?>>
<<How is late work graded?>>
<<What counts as a primary source?>>
Do no repeat questions that have already been asked.
Make sure the last question ends with ">>".`

// injectPromptPrefix marks a prompt_template override that is appended rather than substituted.
const injectPromptPrefix = ">>>"
