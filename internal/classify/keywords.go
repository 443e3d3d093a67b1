package classify

// defaultKeywords returns the built-in multilingual keyword lists. Phrases
// are matched case-insensitively; short Latin words are matched on word
// boundaries so "not" never fires inside "notebook".
func defaultKeywords() KeywordSets {
	return KeywordSets{
		Code: []string{
			"code", "function", "debug", "compile", "refactor", "algorithm",
			"regex", "sql", "script", "stack trace", "unit test", "api",
			"segfault", "null pointer", "exception",
			"代码", "函数", "调试", "编程", "算法",
			"コード", "関数", "デバッグ", "アルゴリズム",
			"код", "функция", "отладка", "алгоритм",
			"quellcode", "programmieren", "fehlersuche",
		},
		Reasoning: []string{
			"prove", "derive", "theorem", "step by step", "first principles",
			"formally", "rigorous", "trade-off", "tradeoff", "optimal",
			"complexity analysis", "counterexample", "why does", "reason about",
			"证明", "推导", "推理", "逐步", "严格",
			"証明", "推論", "導出", "厳密に",
			"докажи", "выведи", "рассуждение", "строго",
			"beweise", "herleiten", "begründe", "schritt für schritt",
		},
		Simple: []string{
			"hi", "hello", "hey", "thanks", "thank you", "ok", "okay",
			"what is", "who is", "when was", "define", "translate", "meaning of",
			"yes", "no",
			"你好", "谢谢", "什么是", "是什么", "翻译",
			"こんにちは", "ありがとう", "とは", "翻訳",
			"привет", "спасибо", "что такое", "переведи",
			"hallo", "danke", "was ist", "übersetze",
		},
		Technical: []string{
			"kubernetes", "database", "distributed", "concurrency", "latency",
			"throughput", "encryption", "protocol", "microservice", "compiler",
			"scheduler", "replication", "consensus", "cache coherence",
			"架构", "数据库", "分布式", "并发", "吞吐量",
			"アーキテクチャ", "データベース", "分散", "並行",
			"архитектура", "база данных", "распределенный", "параллелизм",
			"datenbank", "verteilte", "nebenläufigkeit", "verschlüsselung",
		},
		Creative: []string{
			"story", "poem", "haiku", "fiction", "imagine", "brainstorm",
			"creative", "lyrics", "screenplay",
			"故事", "诗", "想象", "创意",
			"物語", "詩", "想像して",
			"история", "стихотворение", "придумай",
			"geschichte", "gedicht", "erfinde",
		},
		Imperative: []string{
			"write", "create", "build", "generate", "make", "design",
			"implement", "fix", "convert", "summarize", "list", "compare",
			"写一个", "创建", "生成", "设计",
			"書いて", "作成して", "生成して",
			"напиши", "создай", "сделай", "исправь",
			"schreibe", "erstelle", "baue", "entwirf",
		},
		Constraint: []string{
			"must", "should", "at least", "at most", "no more than", "exactly",
			"without using", "limit to", "within", "under", "constraint",
			"必须", "至少", "最多", "不超过", "以内",
			"必ず", "以上", "以下", "以内で",
			"должен", "не более", "не менее", "ровно",
			"muss", "mindestens", "höchstens", "genau",
		},
		OutputFormat: []string{
			"json", "yaml", "csv", "xml", "markdown", "table", "schema",
			"bullet points", "numbered list", "format", "template",
			"表格", "格式", "列表",
			"表形式", "フォーマット", "箇条書き",
			"таблица", "формат", "список",
			"tabelle", "formatiere", "stichpunkte",
		},
		Reference: []string{
			"above", "previous", "earlier", "as mentioned", "the former",
			"the latter", "aforementioned", "that one",
			"上面", "之前", "前面提到",
			"前述", "上記", "さっきの",
			"выше", "ранее", "упомянутый",
			"oben", "zuvor", "genannte",
		},
		Negation: []string{
			"not", "never", "don't", "do not", "without", "except", "unless",
			"avoid", "instead of",
			"不要", "不是", "除了", "避免",
			"しない", "ではなく", "避けて",
			"не", "нельзя", "кроме", "избегай",
			"nicht", "ohne", "kein", "außer",
		},
		Domain: []string{
			"quantum", "genomics", "thermodynamics", "epidemiology",
			"cryptography", "jurisprudence", "derivatives pricing",
			"stoichiometry", "phylogenetics", "macroeconomics",
			"量子", "基因组", "热力学", "密码学",
			"量子力学", "ゲノム", "熱力学", "暗号",
			"квантовый", "геном", "термодинамика", "криптография",
			"quanten", "genomik", "thermodynamik", "kryptographie",
		},
		Agentic: []string{
			"browse", "search the web", "run the command", "execute",
			"use the tool", "open the file", "click", "navigate to",
			"install", "deploy", "commit", "read the file", "call the api",
			"工具", "执行命令", "浏览", "部署",
			"実行して", "ツールを使", "ブラウズ",
			"выполни команду", "инструмент", "разверни",
			"führe aus", "werkzeug", "installiere",
		},
	}
}
