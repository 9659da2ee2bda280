// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/paper-reader/pkg/types"
)

const (
	infoSystemPrompt  = "你是精通材料科学的中文信息抽取助手。"
	dataSystemPrompt  = "你是善于提取数据的助手，输出 JSON"
	cleanSystemPrompt = "你是科研论文清洗助手，只输出 JSON。"
)

// infoPromptTmpl asks for the four-part summary of an article.
var infoPromptTmpl = template.Must(template.New("info").Parse(`
你是科研论文信息抽取助手。请阅读以下正文，提取并用简洁中文总结：
- 材料体系
- 工艺/制备方法
- 性能指标
- 创新点

请以 JSON 输出，键名使用 材料体系、工艺、性能、创新点，对缺失信息填 null。
正文：
{{.Text}}
`))

// dataPromptTmpl lists each schema field as "- name: description".
var dataPromptTmpl = template.Must(template.New("data").Parse(`
请根据以下字段描述，从正文中抽取结构化数据。每个字段需要给出值和来源句子，无法确定请填 null。
请以 JSON 对象输出，键为字段名，值为 {"value": ..., "evidence": ...}。
字段：
{{range .Fields}}- {{.Name}}: {{.Description}}
{{end}}
正文：
{{.Text}}
`))

// cleanPromptTmpl asks the model to recover the narrative from raw XML.
var cleanPromptTmpl = template.Must(template.New("clean").Parse(`
以下是一篇论文的原始 XML。请去除作者、单位、参考文献等元数据，只保留正文、表格和图注。
请以 JSON 输出：{"text": 正文字符串, "tables": 表格数组, "figures": 图注数组}。
XML：
{{.Text}}
`))

// InfoPrompt builds the conversation for the info extraction pass.
func InfoPrompt(text string) ([]Message, error) {
	user, err := render(infoPromptTmpl, struct{ Text string }{text})
	if err != nil {
		return nil, err
	}
	return []Message{
		{Role: "system", Content: infoSystemPrompt},
		{Role: "user", Content: user},
	}, nil
}

// DataPrompt builds the conversation for the field-level data pass.
func DataPrompt(text string, schema types.Schema) ([]Message, error) {
	user, err := render(dataPromptTmpl, struct {
		Text   string
		Fields types.Schema
	}{text, schema})
	if err != nil {
		return nil, err
	}
	return []Message{
		{Role: "system", Content: dataSystemPrompt},
		{Role: "user", Content: user},
	}, nil
}

// CleanPrompt builds the conversation for LLM-assisted XML cleanup.
func CleanPrompt(rawXML string) ([]Message, error) {
	user, err := render(cleanPromptTmpl, struct{ Text string }{rawXML})
	if err != nil {
		return nil, err
	}
	return []Message{
		{Role: "system", Content: cleanSystemPrompt},
		{Role: "user", Content: user},
	}, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
