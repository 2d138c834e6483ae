package parser

import (
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/bracketeer/internal/syntax"
)

func (p *TreeSitterParser) setupJavaScript() {
	language := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	p.register(LanguageJavaScript, []string{".js", ".jsx", ".mjs"}, language, scriptKinds)
}

func (p *TreeSitterParser) setupTypeScript() {
	language := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	p.register(LanguageTypeScript, []string{".ts"}, language, scriptKinds)

	tsx := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	p.register(LanguageTypeScript, []string{".tsx"}, tsx, scriptKinds)
}

func (p *TreeSitterParser) setupGo() {
	language := tree_sitter.NewLanguage(tree_sitter_go.Language())
	p.register(LanguageGo, []string{".go"}, language, goKinds)
}

func (p *TreeSitterParser) setupPython() {
	language := tree_sitter.NewLanguage(tree_sitter_python.Language())
	p.register(LanguagePython, []string{".py"}, language, pythonKinds)
}

func (p *TreeSitterParser) setupRust() {
	language := tree_sitter.NewLanguage(tree_sitter_rust.Language())
	p.register(LanguageRust, []string{".rs"}, language, rustKinds)
}

func (p *TreeSitterParser) setupCpp() {
	language := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	p.register(LanguageCpp, []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"}, language, cppKinds)
}

func (p *TreeSitterParser) setupJava() {
	language := tree_sitter.NewLanguage(tree_sitter_java.Language())
	p.register(LanguageJava, []string{".java"}, language, javaKinds)
}

func (p *TreeSitterParser) setupCSharp() {
	language := tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	p.register(LanguageCSharp, []string{".cs"}, language, csharpKinds)
}

// Zig is only used for comment and string partitions
func (p *TreeSitterParser) setupZig() {
	language := tree_sitter.NewLanguage(tree_sitter_zig.Language())
	p.register(LanguageZig, []string{".zig"}, language, zigKinds)
}

func (p *TreeSitterParser) setupPHP() {
	language := tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	p.register(LanguagePHP, []string{".php", ".phtml"}, language, phpKinds)
}

// kindTable maps one grammar's node kinds onto syntax kinds
type kindTable struct {
	kinds map[string]syntax.Kind
	// excluded kinds are comments and literals; their spans become partitions
	excluded map[string]bool
	// elseWraps are else clauses whose statement is unwrapped into Node.Else
	elseWraps map[string]bool
	// labels are the kinds naming the target of a labeled break or continue
	labels map[string]bool
	// typeBodies are the kinds accepted as a type body when there is no body field
	typeBodies map[string]bool
	// multiNameParams is set when one parameter node declares several names
	multiNameParams bool
	// directives enables C preprocessor directive collection
	directives bool
}

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

var identifierKinds = set(
	"identifier", "field_identifier", "property_identifier", "type_identifier",
	"name", "variable_name", "qualified_identifier", "destructor_name", "operator_name",
	"shorthand_property_identifier_pattern", "simple_identifier",
)

var javaKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"block":                   syntax.KindBlock,
		"if_statement":            syntax.KindIf,
		"for_statement":           syntax.KindFor,
		"enhanced_for_statement":  syntax.KindForeach,
		"while_statement":         syntax.KindWhile,
		"do_statement":            syntax.KindDoWhile,
		"switch_expression":       syntax.KindSwitch,
		"switch_statement":        syntax.KindSwitch,
		"switch_label":            syntax.KindCase,
		"break_statement":         syntax.KindBreak,
		"continue_statement":      syntax.KindContinue,
		"method_declaration":      syntax.KindFunction,
		"constructor_declaration": syntax.KindFunction,
		"lambda_expression":       syntax.KindFunction,
		"class_declaration":       syntax.KindType,
		"interface_declaration":   syntax.KindType,
		"enum_declaration":        syntax.KindType,
		"record_declaration":      syntax.KindType,
		"synchronized_statement":  syntax.KindSynchronized,
		"type_arguments":          syntax.KindTypeArguments,
	},
	excluded: set("line_comment", "block_comment", "string_literal", "character_literal", "text_block"),
	labels:   set("identifier"),
}

var cppKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"compound_statement":     syntax.KindBlock,
		"if_statement":           syntax.KindIf,
		"for_statement":          syntax.KindFor,
		"for_range_loop":         syntax.KindForeach,
		"while_statement":        syntax.KindWhile,
		"do_statement":           syntax.KindDoWhile,
		"switch_statement":       syntax.KindSwitch,
		"case_statement":         syntax.KindCase,
		"break_statement":        syntax.KindBreak,
		"continue_statement":     syntax.KindContinue,
		"function_definition":    syntax.KindFunction,
		"lambda_expression":      syntax.KindFunction,
		"class_specifier":        syntax.KindType,
		"struct_specifier":       syntax.KindType,
		"union_specifier":        syntax.KindType,
		"enum_specifier":         syntax.KindType,
		"template_argument_list": syntax.KindTypeArguments,
	},
	excluded:   set("comment", "string_literal", "char_literal", "raw_string_literal", "system_lib_string"),
	elseWraps:  set("else_clause"),
	directives: true,
}

var goKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"block":                       syntax.KindBlock,
		"if_statement":                syntax.KindIf,
		"for_statement":               syntax.KindFor,
		"expression_switch_statement": syntax.KindSwitch,
		"type_switch_statement":       syntax.KindSwitch,
		"select_statement":            syntax.KindSwitch,
		"expression_case":             syntax.KindCase,
		"type_case":                   syntax.KindCase,
		"communication_case":          syntax.KindCase,
		"default_case":                syntax.KindDefault,
		"break_statement":             syntax.KindBreak,
		"continue_statement":          syntax.KindContinue,
		"function_declaration":        syntax.KindFunction,
		"method_declaration":          syntax.KindFunction,
		"func_literal":                syntax.KindFunction,
		"type_spec":                   syntax.KindType,
		"type_arguments":              syntax.KindTypeArguments,
	},
	excluded:        set("comment", "interpreted_string_literal", "raw_string_literal", "rune_literal"),
	labels:          set("label_name"),
	typeBodies:      set("struct_type", "interface_type"),
	multiNameParams: true,
}

var scriptKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"statement_block":                syntax.KindBlock,
		"if_statement":                   syntax.KindIf,
		"for_statement":                  syntax.KindFor,
		"for_in_statement":               syntax.KindForeach,
		"while_statement":                syntax.KindWhile,
		"do_statement":                   syntax.KindDoWhile,
		"switch_statement":               syntax.KindSwitch,
		"switch_case":                    syntax.KindCase,
		"switch_default":                 syntax.KindDefault,
		"break_statement":                syntax.KindBreak,
		"continue_statement":             syntax.KindContinue,
		"function_declaration":           syntax.KindFunction,
		"generator_function_declaration": syntax.KindFunction,
		"function_expression":            syntax.KindFunction,
		"arrow_function":                 syntax.KindFunction,
		"method_definition":              syntax.KindFunction,
		"class_declaration":              syntax.KindType,
		"abstract_class_declaration":     syntax.KindType,
		"interface_declaration":          syntax.KindType,
		"type_arguments":                 syntax.KindTypeArguments,
	},
	excluded:  set("comment", "string", "template_string", "regex"),
	elseWraps: set("else_clause"),
	labels:    set("statement_identifier"),
}

var csharpKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"block":                    syntax.KindBlock,
		"if_statement":             syntax.KindIf,
		"for_statement":            syntax.KindFor,
		"foreach_statement":        syntax.KindForeach,
		"while_statement":          syntax.KindWhile,
		"do_statement":             syntax.KindDoWhile,
		"switch_statement":         syntax.KindSwitch,
		"switch_section":           syntax.KindCase,
		"break_statement":          syntax.KindBreak,
		"continue_statement":       syntax.KindContinue,
		"method_declaration":       syntax.KindFunction,
		"constructor_declaration":  syntax.KindFunction,
		"local_function_statement": syntax.KindFunction,
		"class_declaration":        syntax.KindType,
		"struct_declaration":       syntax.KindType,
		"interface_declaration":    syntax.KindType,
		"record_declaration":       syntax.KindType,
		"enum_declaration":         syntax.KindType,
		"lock_statement":           syntax.KindSynchronized,
		"type_argument_list":       syntax.KindTypeArguments,
	},
	excluded: set("comment", "string_literal", "character_literal", "verbatim_string_literal",
		"raw_string_literal", "interpolated_string_expression"),
}

var rustKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"block":               syntax.KindBlock,
		"if_expression":       syntax.KindIf,
		"for_expression":      syntax.KindForeach,
		"while_expression":    syntax.KindWhile,
		"loop_expression":     syntax.KindWhile,
		"break_expression":    syntax.KindBreak,
		"continue_expression": syntax.KindContinue,
		"function_item":       syntax.KindFunction,
		"closure_expression":  syntax.KindFunction,
		"struct_item":         syntax.KindType,
		"enum_item":           syntax.KindType,
		"union_item":          syntax.KindType,
		"trait_item":          syntax.KindType,
		"type_arguments":      syntax.KindTypeArguments,
	},
	excluded:  set("line_comment", "block_comment", "string_literal", "raw_string_literal", "char_literal"),
	elseWraps: set("else_clause"),
	labels:    set("label"),
}

var pythonKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"block":               syntax.KindBlock,
		"if_statement":        syntax.KindIf,
		"for_statement":       syntax.KindForeach,
		"while_statement":     syntax.KindWhile,
		"break_statement":     syntax.KindBreak,
		"continue_statement":  syntax.KindContinue,
		"function_definition": syntax.KindFunction,
		"lambda":              syntax.KindFunction,
		"class_definition":    syntax.KindType,
	},
	excluded:  set("comment", "string"),
	elseWraps: set("else_clause"),
}

var phpKinds = &kindTable{
	kinds: map[string]syntax.Kind{
		"compound_statement":    syntax.KindBlock,
		"if_statement":          syntax.KindIf,
		"for_statement":         syntax.KindFor,
		"foreach_statement":     syntax.KindForeach,
		"while_statement":       syntax.KindWhile,
		"do_statement":          syntax.KindDoWhile,
		"switch_statement":      syntax.KindSwitch,
		"case_statement":        syntax.KindCase,
		"default_statement":     syntax.KindDefault,
		"break_statement":       syntax.KindBreak,
		"continue_statement":    syntax.KindContinue,
		"function_definition":   syntax.KindFunction,
		"method_declaration":    syntax.KindFunction,
		"anonymous_function":    syntax.KindFunction,
		"class_declaration":     syntax.KindType,
		"interface_declaration": syntax.KindType,
		"trait_declaration":     syntax.KindType,
		"enum_declaration":      syntax.KindType,
	},
	excluded:  set("comment", "string", "encapsed_string", "heredoc", "nowdoc"),
	elseWraps: set("else_clause"),
}

var zigKinds = &kindTable{
	kinds:    map[string]syntax.Kind{},
	excluded: set("comment", "string", "multiline_string", "character"),
}
