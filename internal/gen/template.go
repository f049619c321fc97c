package gen

const generatedHeader = "// Code generated by ftson. DO NOT EDIT."

var pkgTmpl = generatedHeader + `

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	{{.ImportPath}}
{{- end}}
)
{{end}}
{{- range .Functions}}
// {{.Name}} encodes a {{.ParameterType}} as JSON.
func {{.Name}}(input {{.ParameterType}}) string {
	return {{.Body}}
}
{{end}}`
