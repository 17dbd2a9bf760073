package gemini

import "fmt"

// promptVersion is recorded on every scan result so stored transactions can
// be traced back to the prompt that produced them.
const promptVersion = "v3"

func receiptPrompt(currency string, storeTypeHint string) string {
	base := "You are a receipt parser for a consumer expense-tracking app.\n\n" +
		"Task:\n" +
		"- Read the attached receipt photo(s) and extract one purchase.\n" +
		"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
		"- Output a single JSON object.\n\n" +
		"The object must have these fields (use null when unreadable):\n" +
		"- \"merchant\": string or null\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\", or null\n" +
		"- \"time\": string \"HH:MM\" or null\n" +
		"- \"total\": number or null\n" +
		"- \"currency\": string (e.g. \"" + currency + "\") or null\n" +
		"- \"category\": string or null\n" +
		"- \"country\": string or null\n" +
		"- \"city\": string or null\n" +
		"- \"receiptType\": string or null\n" +
		"- \"items\": array of objects with \"name\" (string), \"price\" (number),\n" +
		"  \"quantity\" (number or null), \"category\" (string or null),\n" +
		"  \"subcategory\" (string or null)\n\n"

	rules := "Rules:\n" +
		"- Prices are per line, already multiplied by quantity where the receipt shows it.\n" +
		"- Use the receipt's own language for item names; do not translate.\n" +
		"- If the printed total is unreadable, set \"total\" to null rather than guessing.\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Do NOT use ```json or any Markdown.\n" +
		"Output must begin with \"{\" and end with \"}\".\n"

	if storeTypeHint != "" {
		rules = fmt.Sprintf("The receipt is from a %s store; bias item categories accordingly.\n\n", storeTypeHint) + rules
	}

	return base + rules
}
