package telegram

// Локализованные тексты бота. Приветствие двуязычное, остальные
// сообщения выбираются по языку из сессии пользователя.
var texts = map[string]map[string]string{
	"ask_symbol": {
		"ar": "📩 أرسل اسم العملة الرقمية التي تريد تحليلها (مثال: BTC أو ETH):",
		"en": "📩 Send the ticker of the cryptocurrency you want analyzed (for example: BTC or ETH):",
	},
	"analyzing": {
		"ar": "🔍 تحليل العملة %s قيد المعالجة...",
		"en": "🔍 Analyzing %s, please wait...",
	},
	"analysis_failed": {
		"ar": "❌ حدث خطأ أثناء التحليل، حاول مرة أخرى لاحقًا.",
		"en": "❌ Analysis failed, please try again later.",
	},
	"payment_required": {
		"ar": "🔐 لقد استخدمت تحليلك المجاني. للاستمرار، يرجى إتمام الدفع عبر الرابط أدناه.",
		"en": "🔐 You have used your free analysis. To continue, please complete the payment below.",
	},
	"invoice_failed": {
		"ar": "❌ تعذر إنشاء فاتورة الدفع، حاول مرة أخرى لاحقًا.",
		"en": "❌ Could not create a payment invoice, please try again later.",
	},
	"pay_button": {
		"ar": "💳 ادفع الآن",
		"en": "💳 Pay now",
	},
	"trial_notice": {
		"ar": "🎁 هذا تحليلك المجاني الوحيد. التحليلات التالية تتطلب الدفع.",
		"en": "🎁 This is your single free analysis. Further analyses require payment.",
	},
}

const welcomeText = "👋 مرحبًا بك في بوت تحليل العملات الرقمية.\n" +
	"Welcome to the crypto analysis bot.\n\n" +
	"🌐 اختر لغتك / Choose your language:"

// text возвращает сообщение по ключу на языке пользователя,
// с откатом на арабский.
func text(key, language string) string {
	msgs, ok := texts[key]
	if !ok {
		return ""
	}
	if msg, ok := msgs[language]; ok {
		return msg
	}
	return msgs["ar"]
}
