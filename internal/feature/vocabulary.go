package feature

// apis is the closed set of 42 API-related substrings tracked by the
// extractor. These are matched as exact token text (not substring
// containment), mirroring the upstream feature extractor's own dict-key
// membership check. Order is part of the one-hot vector layout and must
// not change — it is a cross-implementation cache-compatibility
// requirement, not a free choice.
var apis = []string{
	"alloc", "free", "mem", "copy", "new", "open", "close", "delete",
	"create", "release", "sizeof", "remove", "clear", "dequene", "enquene",
	"detach", "Attach", "str", "string", "lock", "mutex", "spin", "init",
	"register", "disable", "enable", "put", "get", "up", "down", "inc",
	"dec", "add", "sub", "set", "map", "stop", "start", "prepare",
	"suspend", "resume", "connect",
}

// operators is the closed set of 42 operator spellings tracked by the
// extractor: the eight C++ alternative-token spellings that a lexer tokenizes
// as word-like operators (bitand/bitor/xor/not/not_eq/or/or_eq/and), followed
// by the 34 punctuation operator spellings. Order is part of the one-hot
// vector layout and must not change.
var operators = []string{
	"bitand", "bitor", "xor", "not", "not_eq", "or", "or_eq", "and",
	"++", "--", "+", "-", "*", "/", "%", "=", "+=", "-=", "*=", "/=", "%=",
	"<<=", ">>=", "&=", "^=", "|=", "&&", "||", "!", "==", "!=", ">=", "<=",
	">", "<", "&", "|", "<<", ">>", "~", "^", "->",
}

// keywords is the closed set of 77 C++ keywords tracked by the extractor.
// Note "new"/"delete"/"register"/"sizeof" are deliberately absent here: the
// upstream vocabulary tracks them under apis instead, and "and"/"or"/"not"/
// "bitand"/"bitor"/"xor"/"not_eq"/"or_eq" are tracked under operators, not
// here. Order is part of the one-hot vector layout and must not change.
var keywords = []string{
	"asm", "auto", "alignas", "alignof", "bool", "break", "case",
	"catch", "char", "char16_t", "char32_t", "class", "const", "const_cast",
	"constexpr", "continue", "decltype", "default", "do", "double",
	"dynamic_cast", "else", "enum", "explicit", "export", "extern", "false",
	"float", "for", "friend", "goto", "if", "inline", "int", "long",
	"mutable", "namespace", "noexcept", "nullptr", "operator", "private",
	"protected", "public", "reinterpret_cast", "return", "short", "signed",
	"static", "static_assert", "static_cast", "struct", "switch", "template",
	"this", "thread_local", "throw", "true", "try", "typedef", "typeid",
	"typename", "union", "unsigned", "using", "virtual", "void", "volatile",
	"wchar_t", "while", "compl", "override", "final", "assert",
}

// formatLetters is the closed set of printf-style conversion letters. The
// upstream vocabulary's own list comment claims 21 entries but enumerates
// only these 20; kept exactly as enumerated rather than silently padded to
// match the comment, since the enumerated list (not the comment) is what
// cross-implementation cache compatibility is keyed on.
var formatLetters = []string{
	"d", "i", "o", "u", "x", "X", "f", "F", "e", "E",
	"g", "G", "a", "A", "c", "C", "s", "S", "p", "n",
}

// VectorLength is N, the fixed length of a feature vector.
var VectorLength = len(apis) + len(operators) + len(keywords) + len(formatLetters)

// offsets into the vector for each of the four vocabulary groups.
var (
	apiOffset    = 0
	opOffset     = apiOffset + len(apis)
	kwOffset     = opOffset + len(operators)
	fmtOffset    = kwOffset + len(keywords)
	apiIndex     = indexOf(apis)
	opIndex      = indexOf(operators)
	kwIndex      = indexOf(keywords)
	fmtIndex     = indexOf(formatLetters)
	punctuations = punctuationSet()
)

func indexOf(vocab []string) map[string]int {
	m := make(map[string]int, len(vocab))
	for i, s := range vocab {
		m[s] = i
	}
	return m
}

// punctuationSet collects the bytes that appear in any punctuation-spelled
// operator, so the lexer knows which bytes to hand to the operator state
// machine instead of treating them as identifier/word boundaries. Word-
// spelled operators (bitand, or, not, ...) are matched as identifiers
// instead, via markWord's opIndex lookup.
func punctuationSet() map[byte]bool {
	set := map[byte]bool{}
	for _, op := range operators {
		if isIdentStart(op[0]) {
			continue
		}
		for i := 0; i < len(op); i++ {
			set[op[i]] = true
		}
	}
	return set
}
