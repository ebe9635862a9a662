// ABOUTME: Prompt templates for the report generation stages
// ABOUTME: Every template asks for a bare JSON object with a fixed key
package report

const topicPrompt = `你是一名新闻编辑，擅长从报道中提炼事件主题。
下面给出同一事件的若干篇新闻片段，请概括这一事件的主题，控制在10个字左右。
只输出如下格式的 JSON，不要附加说明，也不要使用代码块：
    {"topic": "十字左右的主题"}

新闻片段：
%s
`

const queryPrompt = `你是一名检索策略专家，需要为一个新闻主题设计检索查询。
背景：该主题下的新闻稿件已经分块并建立了向量索引，接下来需要据此写一份事件摘要。
请给出5个左右的查询词、短语或句子，每个不超过20个字，
使检索到的分块尽量覆盖事件的关键信息，例如事件在何时何地发生、涉及哪些主体、起因与结果。
只输出如下格式的 JSON，不要附加说明，也不要使用代码块：
    {"query_words": ["查询1", "查询2", "查询3", "查询4", "查询5"]}

新闻主题：%s
`

const summaryPrompt = `你是一名资深新闻编辑，请为“%s”撰写事件摘要。
下列材料已按时间先后排列，请只依据这些材料写作：
    1. 按时间顺序串联多篇材料中的信息，形成完整的叙述。
    2. 交代事件的时间、地点和主体，以及起因、经过和结果。
    3. 全文200字左右。
材料：
    %s

只输出如下格式的 JSON，不要附加说明，也不要使用代码块：
    {"summary": "摘要内容"}
`

const influencePrompt = `你是一名时事评论员，请分析“%s”这一事件造成的影响。
事件概要：
    %s
相关报道（按时间先后排列）：
    %s

要求：
    1. 只依据上述材料，说明事件对相关人群、行业或社会产生的影响以及各方反应。
    2. 如有后续进展，一并交代。
    3. 全文150字左右。
只输出如下格式的 JSON，不要附加说明，也不要使用代码块：
    {"influence": "影响分析"}
`

const mergePrompt = `你是一名新闻编辑，请把同一事件的摘要和影响分析整合为一篇连贯的简报。
主题：%s
事件摘要：
    %s
影响分析：
    %s

要求：先叙述事件经过，再说明影响，语言简洁，不增加材料中没有的信息，全文300字以内。
只输出如下格式的 JSON，不要附加说明，也不要使用代码块：
    {"merged_content": "整合后的简报"}
`

// influenceSuffixes turn a topic into impact-oriented query variants
var influenceSuffixes = []string{"的影响", "的后果", "各方反应", "后续进展"}
