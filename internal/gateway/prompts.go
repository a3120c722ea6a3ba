package gateway

import "fmt"

// ScholarPersona is the fixed system instruction for scholar chat.
const ScholarPersona = "你是一位博古通今的国学大师，精通佛学、道家、儒家及易经。" +
	"请用用户提问所用的语言回答。回答应富有哲理，引经据典，同时语言通俗易懂，态度谦和宁静。"

// NoGuideText is returned when the guide call yields no text.
const NoGuideText = "暂无内容。"

func searchPrompt(query string) string {
	return fmt.Sprintf(`User is searching for: %q.
Task: Use Google Search to find relevant Chinese classic books, philosophy, or history texts.
CRITICAL: You MUST prioritize finding results from the website "5000yan.com".
If a 5000yan.com link is found, use it as the targetUrl.

Output Format:
1. A short summary of the search results in Chinese.
2. A JSON block containing the list of books found.

The JSON block must follow this structure:
`+"```json"+`
{
  "books": [
    {
      "title": "Book Title",
      "author": "Author Name",
      "description": "Short description",
      "category": "One of: 诸子百家, 佛学经典, 易经术数, 史书典籍, 西方哲学",
      "targetUrl": "URL found"
    }
  ]
}
`+"```", query)
}

func guidePrompt(title string) string {
	return fmt.Sprintf(`为书籍: %q 提供一个深度的"智能导读"。
请使用Markdown格式，包含以下部分：
1. **简介**：简要介绍书籍背景。
2. **核心思想**：列出3-5个核心哲学或思想观点。
3. **经典摘录与解读**：选取一段原文（如果是古文请附带原文），并提供现代汉语的深度解读。
4. **现代启示**：这本书对现代人生活的指导意义。

风格要求：古朴典雅，富有智慧。`, title)
}

const wisdomPrompt = `生成一张"每日智慧"卡片内容。
随机选择：易经的一个卦象（包含卦名和卦辞），或者一句中国古代哲学名言（老庄、孔孟、禅宗等）。

返回JSON格式:
{
  "text": "名言内容 或 卦名+卦辞",
  "source": "出处 (如: 道德经, 周易)",
  "interpretation": "一句简短的现代生活解读，充满正能量和启发性。"
}`

const quizPrompt = `Generate a fun, interesting multiple choice quiz question about Chinese History, Philosophy, or Literature.
Output JSON:
{
  "question": "The question text in Chinese",
  "options": ["Option A", "Option B", "Option C", "Option D"],
  "answer": 0,
  "explanation": "Short explanation in Chinese why it is correct"
}
"options" must contain exactly four entries and "answer" is the zero-based index of the correct one.`

var wisdomSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"text":           {Type: TypeString},
		"source":         {Type: TypeString},
		"interpretation": {Type: TypeString},
	},
	Order:    []string{"text", "source", "interpretation"},
	Required: []string{"text", "source", "interpretation"},
}

var quizSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"question":    {Type: TypeString},
		"options":     {Type: TypeArray, Items: &Schema{Type: TypeString}},
		"answer":      {Type: TypeInteger},
		"explanation": {Type: TypeString},
	},
	Order:    []string{"question", "options", "answer", "explanation"},
	Required: []string{"question", "options", "answer", "explanation"},
}
