// Package metadata reads AOT metadata files (AxClass, AxTable, AxEnum XML)
// into symbol records, deriving the analytic attributes the pattern
// engine mines.
package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"xppkb/internal/errors"
	"xppkb/internal/symbols"
)

// Parser produces the symbols declared in one metadata file.
type Parser interface {
	ParseFile(path, model string) ([]symbols.Symbol, error)
}

// ElementDirs maps the AOT folders the indexer walks to the kind of the
// top-level symbol their files declare.
var ElementDirs = map[string]symbols.Kind{
	"AxClass": symbols.KindClass,
	"AxTable": symbols.KindTable,
	"AxEnum":  symbols.KindEnum,
}

const defaultSnippetLines = 15

// XMLParser parses AOT XML files.
type XMLParser struct {
	SnippetLines int
}

// NewXMLParser creates a parser with default snippet length.
func NewXMLParser() *XMLParser {
	return &XMLParser{SnippetLines: defaultSnippetLines}
}

type axElement struct {
	XMLName    xml.Name
	Name       string        `xml:"Name"`
	Extends    string        `xml:"Extends"`
	Label      string        `xml:"Label"`
	SourceCode axSourceCode  `xml:"SourceCode"`
	Fields     []axField     `xml:"Fields>AxTableField"`
	EnumValues []axEnumValue `xml:"EnumValues>AxEnumValue"`
}

type axSourceCode struct {
	Declaration string     `xml:"Declaration"`
	Methods     []axMethod `xml:"Methods>Method"`
}

type axMethod struct {
	Name   string `xml:"Name"`
	Source string `xml:"Source"`
}

type axField struct {
	Name             string `xml:"Name"`
	Type             string `xml:"type,attr"`
	ExtendedDataType string `xml:"ExtendedDataType"`
	EnumType         string `xml:"EnumType"`
	Mandatory        string `xml:"Mandatory"`
}

type axEnumValue struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

// ParseFile reads and parses one metadata file.
func (p *XMLParser) ParseFile(path, model string) ([]symbols.Symbol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ParseFailure, fmt.Sprintf("cannot read %s", path), err)
	}
	return p.Parse(data, path, model)
}

// Parse parses the XML of one metadata file. The top-level symbol comes
// first, followed by its members.
func (p *XMLParser) Parse(data []byte, path, model string) ([]symbols.Symbol, error) {
	var el axElement
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&el); err != nil {
		return nil, errors.New(errors.ParseFailure, fmt.Sprintf("malformed metadata XML in %s", path), err)
	}

	var syms []symbols.Symbol
	switch el.XMLName.Local {
	case "AxClass":
		syms = p.parseClass(&el, path, model)
	case "AxTable":
		syms = p.parseTable(&el, path, model)
	case "AxEnum":
		syms = p.parseEnum(&el, path, model)
	default:
		return nil, errors.Newf(errors.ParseFailure, "unsupported metadata element %q in %s", el.XMLName.Local, path)
	}
	if len(syms) == 0 || syms[0].Name == "" {
		return nil, errors.Newf(errors.ParseFailure, "%s declares no %s name", path, el.XMLName.Local)
	}
	return syms, nil
}

func (p *XMLParser) parseClass(el *axElement, path, model string) []symbols.Symbol {
	decl := el.SourceCode.Declaration
	code := stripNoise(decl)

	name := strings.TrimSpace(el.Name)
	if name == "" {
		name = classNameOf(code)
	}

	cls := symbols.Symbol{
		Name:           name,
		Kind:           symbols.KindClass,
		Signature:      header(code),
		SourceLocation: path,
		Model:          model,
		Extends:        strings.TrimSpace(el.Extends),
		SourceSnippet:  snippet(decl, p.snippetLines()),
	}
	if cls.Extends == "" {
		cls.Extends = extendsOf(code)
	}

	var types nameSet
	for _, t := range usedTypes(code) {
		if !strings.EqualFold(t, name) {
			types.add(t)
		}
	}
	for _, t := range implementsOf(code) {
		types.add(t)
	}

	extensionOf := ""
	for _, attr := range attributes(stripNoise(decl)) {
		if target := extensionTarget(attr); target != "" {
			extensionOf = target
		}
	}
	if extensionOf != "" {
		cls.PatternType = "Extension"
		types.add(extensionOf)
		if cls.Extends == "" {
			cls.Extends = extensionOf
		}
	}
	if cls.PatternType == "" {
		cls.PatternType = symbols.InferPatternType(name)
	}
	if cls.PatternType == "" {
		cls.PatternType = baseRoles[strings.ToLower(cls.Extends)]
	}
	cls.Tags = symbols.InferTags(name, cls.PatternType)
	if isInterface(code) {
		cls.Tags = append(cls.Tags, "Interface")
	}

	methods := p.parseMethods(el.SourceCode.Methods, name, path, model, extensionOf != "")
	cls.Complexity = 1
	for _, m := range methods {
		cls.Complexity += m.Complexity - 1
	}
	cls.UsedTypes = types.list

	return append([]symbols.Symbol{cls}, methods...)
}

func (p *XMLParser) parseTable(el *axElement, path, model string) []symbols.Symbol {
	name := strings.TrimSpace(el.Name)
	tbl := symbols.Symbol{
		Name:           name,
		Kind:           symbols.KindTable,
		Signature:      "table " + name,
		SourceLocation: path,
		Model:          model,
		PatternType:    symbols.InferPatternType(name),
	}
	tbl.Tags = symbols.InferTags(name, tbl.PatternType)

	var tableTypes nameSet
	var fields []symbols.Symbol
	for _, f := range el.Fields {
		fname := strings.TrimSpace(f.Name)
		if fname == "" {
			continue
		}
		typ := strings.TrimSpace(f.ExtendedDataType)
		if typ == "" {
			typ = strings.TrimSpace(f.EnumType)
		}
		base := strings.TrimPrefix(f.Type, "AxTableField")
		field := symbols.Symbol{
			Name:           fname,
			Kind:           symbols.KindField,
			Parent:         name,
			SourceLocation: path,
			Model:          model,
		}
		switch {
		case typ != "":
			field.Signature = typ + " " + fname
			field.UsedTypes = []string{typ}
			tableTypes.add(typ)
		case base != "":
			field.Signature = strings.ToLower(base) + " " + fname
		default:
			field.Signature = fname
		}
		if strings.EqualFold(f.Mandatory, "Yes") {
			field.Tags = []string{"Mandatory"}
		}
		fields = append(fields, field)
	}
	tbl.UsedTypes = tableTypes.list

	methods := p.parseMethods(el.SourceCode.Methods, name, path, model, false)
	tbl.Complexity = 1
	for _, m := range methods {
		tbl.Complexity += m.Complexity - 1
	}

	out := append([]symbols.Symbol{tbl}, fields...)
	return append(out, methods...)
}

func (p *XMLParser) parseEnum(el *axElement, path, model string) []symbols.Symbol {
	name := strings.TrimSpace(el.Name)
	values := make([]string, 0, len(el.EnumValues))
	for i, v := range el.EnumValues {
		value := strings.TrimSpace(v.Value)
		if value == "" {
			value = fmt.Sprint(i)
		}
		values = append(values, strings.TrimSpace(v.Name)+" = "+value)
	}
	return []symbols.Symbol{{
		Name:           name,
		Kind:           symbols.KindEnum,
		Signature:      "enum " + name + " { " + strings.Join(values, ", ") + " }",
		SourceLocation: path,
		Model:          model,
	}}
}

func (p *XMLParser) parseMethods(src []axMethod, parent, path, model string, extension bool) []symbols.Symbol {
	methods := make([]symbols.Symbol, 0, len(src))
	siblings := make(map[string]bool, len(src))
	for _, m := range src {
		siblings[strings.ToLower(strings.TrimSpace(m.Name))] = true
	}

	for _, m := range src {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		code := stripNoise(m.Source)
		sig := header(code)
		if sig == "" {
			sig = name + "()"
		}

		calls := methodCalls(code)
		var related []string
		for _, c := range calls {
			if siblings[strings.ToLower(c)] && !strings.EqualFold(c, name) {
				related = append(related, c)
			}
		}

		usages := apiUsages(code)
		methods = append(methods, symbols.Symbol{
			Name:             name,
			Kind:             symbols.KindMethod,
			Parent:           parent,
			Signature:        sig,
			SourceLocation:   path,
			Model:            model,
			Tags:             methodTags(name, sig, code, attributes(m.Source), extension),
			UsedTypes:        usedTypes(code),
			MethodCalls:      calls,
			RelatedMethods:   related,
			APIUsagePatterns: usages,
			TypicalUsages:    typicalUsages(usages),
			Complexity:       complexity(code),
			SourceSnippet:    snippet(m.Source, p.snippetLines()),
		})
	}
	return methods
}

func (p *XMLParser) snippetLines() int {
	if p.SnippetLines <= 0 {
		return defaultSnippetLines
	}
	return p.SnippetLines
}
