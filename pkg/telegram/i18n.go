package telegram

import "strings"

// Supported reply languages. Anything else falls back to Spanish.
const (
	LangES = "es"
	LangEN = "en"
)

func normalizeLang(lang string) string {
	if lang == LangEN {
		return LangEN
	}
	return LangES
}

// msg renders a catalog message for a language, substituting {name}
// placeholders from args.
func msg(lang, key string, args map[string]string) string {
	lang = normalizeLang(lang)
	text, ok := catalog[lang][key]
	if !ok {
		text = catalog[LangES][key]
	}
	for k, v := range args {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}

var catalog = map[string]map[string]string{
	"es": {
		"not_linked": "Aún no estás vinculado. En la web: Vincular Telegram.",

		"link_need_code": "⚠️ Para vincular tu cuenta debes usar el botón **Vincular Telegram** desde la web.\n\n" +
			"Entra a la web → Vincular Telegram → Abrir Telegram.\n" +
			"Luego presiona START y quedará vinculado automáticamente ✅",
		"link_bad_code": "❌ Código inválido o expirado.\n" +
			"Vuelve a la web → Vincular Telegram → Abrir Telegram para generar uno nuevo.",

		"lang_changed": "✅ Listo, te respondo en español.",
		"link_ok": "✅ Listo, Telegram vinculado.\n\n" +
			"Opciones rápidas:\n" +
			"1) 🧾 Registrar gasto o ingreso (en un mensaje o paso a paso)\n" +
			"2) 💳 Registrar pago de tarjeta\n" +
			"3) 🤝 Registrar préstamo\n" +
			"4) 🔎 Consultar movimientos o resumen",

		"help": "Puedo ayudarte con estas opciones:\n\n" +
			"1) 🧾 Registrar un gasto o ingreso\n" +
			"   - En un mensaje:\n" +
			"     Gasto 3.290 Uber\n" +
			"     Ingreso 500.000 Sueldo\n" +
			"     Gasto 12 USD Burger\n" +
			"   - Paso a paso:\n" +
			"     Escribe: Gasto\n" +
			"     o: Ingreso\n" +
			"     y te voy preguntando monto, moneda, descripción y tarjeta (si aplica).\n\n" +
			"2) 💳 Pago de tarjeta\n" +
			"   - En un mensaje:\n" +
			"     Pago tarjeta 120.000 Itaú\n" +
			"   - Paso a paso:\n" +
			"     Escribe: Pago tarjeta\n" +
			"     y te pregunto el monto y qué tarjeta estás pagando.\n\n" +
			"3) 🤝 Préstamos\n" +
			"   Préstamo 45000 a Rosa (si faltan datos, te pregunto cuotas y primera fecha).\n\n" +
			"4) 🔎 Consultas\n" +
			"   Movimientos hoy\n" +
			"   Movimientos 2025-12-18\n" +
			"   Resumen 2025-12\n" +
			"   Movimientos 2025-12-10 a 2025-12-15\n\n" +
			"5) 🗑️ Eliminar\n" +
			"   Eliminar 123\n" +
			"   Eliminar último\n\n" +
			"Tip tarjetas: si quieres asociar un gasto a una tarjeta, agrega el banco al final.\n" +
			"Ejemplo: Gasto 12000 Uber Itaú\n" +
			"Si hay más de una, te pregunto cuál.\n\n" +
			"En cualquier paso puedes cancelar con: C",

		"tx_parse_fail": "No pude interpretar tu mensaje.\n\n" +
			"Opciones:\n" +
			"1) 🧾 Registrar gasto o ingreso\n" +
			"   - En un mensaje: Gasto 3290 Uber  |  Ingreso 500000 Sueldo\n" +
			"   - Paso a paso: escribe Gasto o Ingreso\n\n" +
			"2) 💳 Pago de tarjeta\n" +
			"   - En un mensaje: Pago tarjeta 120000 Itaú\n" +
			"   - Paso a paso: escribe Pago tarjeta\n\n" +
			"3) 🤝 Préstamo: Préstamo 45000 a Rosa\n" +
			"4) 🔎 Consultas: Movimientos hoy  |  Resumen 2025-12\n\n" +
			"Tip: para USD agrega USD o $.\n" +
			"Puedes cancelar en cualquier momento con: C",

		"tx_saved":         "✅ Registrado: {label} {amount} {cur}{approx} · {desc}\nID: {id}",
		"tx_dupe":          "ℹ️ Ese mensaje ya estaba registrado (no lo dupliqué).",
		"delete_need_id":   "Indica el ID. Ejemplo: Eliminar 123 o Eliminar último.",
		"delete_not_found": "No encontré ese movimiento (o no es tuyo).",
		"delete_ok":        "🗑️ Eliminado: {label} {amount} {cur} · {desc}\nID: {id}",

		"movements_none":         "No hay movimientos para esa fecha.",
		"movements_range_none":   "No hay movimientos en ese rango.",
		"movements_header":       "📅 Movimientos {day}:",
		"movements_range_header": "📅 Movimientos {a} a {b}:",
		"summary_header":         "📊 Resumen {ym}:",

		"loans_none":            "No tienes préstamos activos.",
		"loans_header":          "🤝 Préstamos activos:",
		"loan_created":          "✅ Préstamo creado: {amount} {cur}{approx} a {person} · {n} cuotas · primer vencimiento {due}",
		"loan_ask_installments": "Perfecto. ¿En cuántas cuotas? (ejemplo: 3)",
		"loan_ask_first_due":    "¿Cuál es la primera fecha de pago? Formato YYYY-MM-DD. Ejemplo: 2026-01-15",
		"loan_bad_date":         "Fecha inválida. Usa formato YYYY-MM-DD. Ejemplo: 2026-01-15",
		"loan_bad_installments": "No entendí las cuotas. Envíame solo un número (ejemplo: 3).",

		"card_ask": "💳 ¿Con qué tarjeta fue este gasto?\n" +
			"Responde con 1, 2, 3...\n\n" +
			"{cards}\n\n" +
			"0) Sin tarjeta\n" +
			"C) Cancelar",
		"card_linked":    "✅ Listo. Asocié el movimiento a la tarjeta: {card}.",
		"card_skip":      "👌 Ok, dejo el movimiento sin tarjeta.",
		"card_not_found": "No logré interpretarlo. Responde con 1, 2, 3... o 0 para sin tarjeta, o C para cancelar.",
		"card_no_cards":  "No tienes tarjetas creadas en la web. Crea una en Cards y luego intenta de nuevo.",
		"card_pay_ask": "💳 ¿Qué tarjeta estás pagando?\n" +
			"Responde con 1, 2, 3...\n\n" +
			"{cards}\n\n" +
			"C) Cancelar",
		"card_pay_not_found":           "No logré interpretarlo. Responde con 1, 2, 3... o C para cancelar.",
		"card_payment_applied":         "✅ Listo. Registré el pago y aboné el saldo de {card}. ID: {id}",
		"card_payment_missing_balance": "✅ Listo. Registré el pago en {card}. ID: {id}",

		"tx_confirm_title": "✅ Antes de guardar, revisa si está correcto:",
		"tx_confirm_actions_expense": "Responde con una opción:\n" +
			"1) Guardar\n" +
			"2) Editar monto\n" +
			"3) Editar moneda\n" +
			"4) Editar descripción\n" +
			"5) Editar tarjeta\n" +
			"6) Cambiar tipo (gasto/ingreso)\n" +
			"0) Cancelar",
		"tx_confirm_actions_income": "Responde con una opción:\n" +
			"1) Guardar\n" +
			"2) Editar monto\n" +
			"3) Editar moneda\n" +
			"4) Editar descripción\n" +
			"6) Cambiar tipo (gasto/ingreso)\n" +
			"0) Cancelar",
		"tx_confirm_actions_payment": "Responde con una opción:\n" +
			"1) Guardar\n" +
			"2) Editar monto\n" +
			"3) Editar moneda\n" +
			"5) Editar tarjeta\n" +
			"0) Cancelar",
		"tx_cancel_ok":             "🚫 Ok, cancelé. No guardé nada.",
		"tx_edit_amount_ask":       "💰 Dime el monto. Ejemplos: 3290  |  3.290  |  12 USD\nC) Cancelar",
		"tx_edit_currency_ask":     "💱 ¿Qué moneda es? Responde CLP o USD.\nC) Cancelar",
		"tx_edit_desc_ask":         "📝 Dime la descripción. Ejemplo: Uber, supermercado, arriendo...\nC) Cancelar",
		"tx_edit_kind_ask":         "🔄 ¿Qué es? Responde: Gasto o Ingreso.\nC) Cancelar",
		"tx_need_card_for_payment": "Para registrar un pago de tarjeta necesito que elijas una tarjeta. Si no tienes, crea una en la web (Cards).",
		"tx_bad_amount":            "No entendí el monto. Ejemplos: 3290  |  3.290  |  12 USD",
		"tx_try_again":             "Algo falló por mi lado. Intenta de nuevo en un momento.",

		"cat_unknown": "🔎 No encontré una categoría para: *{kw}*\n\n" +
			"¿Qué quieres hacer?\n" +
			"1) Asociar a una categoría existente\n" +
			"2) Crear una nueva categoría\n" +
			"0) Dejar sin categoría\n" +
			"C) Cancelar",
		"cat_pick_existing": "📌 Elige una categoría para asociar *{kw}*.\n" +
			"Responde con 1, 2, 3...\n\n" +
			"{cats}\n\n" +
			"C) Cancelar",
		"cat_new_ask_name": "🆕 Perfecto. ¿Cómo se llama la nueva categoría?\n" +
			"Ej: Transporte, Comida, Supermercado...\n" +
			"C) Cancelar",
		"cat_new_pick_existing_budget": "📆 ¿Quieres crear el presupuesto mensual de esta categoría?\n" +
			"Elige una opción:\n\n" +
			"{buds}\n\n" +
			"N) Definir un monto nuevo\n" +
			"0) No crear presupuesto ahora\n" +
			"C) Cancelar",
		"cat_new_ask_amount": "💰 ¿Cuál es el presupuesto mensual (CLP) para esta categoría?\n" +
			"Ej: 150000\n" +
			"C) Cancelar",
		"cat_linked_ok":     "✅ Listo. Asocié *{kw}* a la categoría: {cat}.",
		"cat_created_ok":    "✅ Categoría creada: {cat}.",
		"cat_skipped":       "👌 Ok, dejo el gasto sin categoría.",
		"cat_invalid":       "No entendí. Responde con 1, 2, 3... o C para cancelar.",
		"cat_no_categories": "No tienes categorías creadas aún. Elige 2 para crear una nueva.",
		"cat_no_budgets":    "No encontré presupuestos mensuales creados para este mes. Puedes definir un monto nuevo (N) o 0 para saltar.",

		"ocr_result_header": "🧾 Texto detectado en la foto:",
		"ocr_no_text": "No pude detectar texto en la foto.\n\n" +
			"Tips rápidos:\n" +
			"• Acércate más a la boleta\n" +
			"• Buena luz (sin sombras)\n" +
			"• Que se vea nítida (sin movimiento)\n" +
			"• Evita reflejos/brillos",
		"ocr_failed": "No pude leer la foto por ahora. Intenta de nuevo con otra toma.",
	},
	"en": {
		"not_linked": "You are not linked yet. On the web: Link Telegram.",

		"link_need_code": "⚠️ To link your account, use the **Link Telegram** button on the web.\n\n" +
			"Go to the web → Link Telegram → Open Telegram.\n" +
			"Then press START and it will link automatically ✅",
		"lang_changed": "✅ Done, I will reply in English.",

		"link_bad_code": "❌ Invalid or expired code.\n" +
			"Go back to the web → Link Telegram → Open Telegram to generate a new one.",
		"link_ok": "✅ Linked.\n\n" +
			"Quick options:\n" +
			"1) 🧾 Record expense or income (one message or step by step)\n" +
			"2) 💳 Record card payment\n" +
			"3) 🤝 Record a loan\n" +
			"4) 🔎 Query movements or summary",

		"help": "I can help with these options:\n\n" +
			"1) 🧾 Record an expense or income\n" +
			"   - In one message:\n" +
			"     Expense 3,290 Uber\n" +
			"     Income 500,000 Salary\n" +
			"     Expense 12 USD Burger\n" +
			"   - Step by step:\n" +
			"     Send: Expense\n" +
			"     or: Income\n" +
			"     and I'll ask amount, currency, description and card (if applicable).\n\n" +
			"2) 💳 Card payment\n" +
			"   - In one message:\n" +
			"     Card payment 120000 Itau\n" +
			"   - Step by step:\n" +
			"     Send: Card payment\n" +
			"     and I'll ask amount and which card you're paying.\n\n" +
			"3) 🤝 Loans\n" +
			"   Loan 45000 to Rosa (if missing info, I'll ask installments and first due date).\n\n" +
			"4) 🔎 Queries\n" +
			"   Movements today\n" +
			"   Movements 2025-12-18\n" +
			"   Summary 2025-12\n" +
			"   Movements 2025-12-10 to 2025-12-15\n\n" +
			"5) 🗑️ Delete\n" +
			"   Delete 123\n" +
			"   Delete last\n\n" +
			"You can cancel anytime with: C",

		"tx_parse_fail": "I couldn't understand your message.\n\n" +
			"Options:\n" +
			"1) 🧾 Record expense or income\n" +
			"2) 💳 Card payment\n" +
			"3) 🤝 Loan\n" +
			"4) 🔎 Queries\n\n" +
			"You can cancel anytime with: C",

		"tx_saved":         "✅ Saved: {label} {amount} {cur}{approx} · {desc}\nID: {id}",
		"tx_dupe":          "ℹ️ That message was already recorded (no duplicate).",
		"delete_need_id":   "Provide an ID. Example: Delete 123 or Delete last.",
		"delete_not_found": "I couldn't find that transaction (or it's not yours).",
		"delete_ok":        "🗑️ Deleted: {label} {amount} {cur} · {desc}\nID: {id}",

		"movements_none":         "No movements for that date.",
		"movements_range_none":   "No movements in that range.",
		"movements_header":       "📅 Movements {day}:",
		"movements_range_header": "📅 Movements {a} to {b}:",
		"summary_header":         "📊 Summary {ym}:",

		"loans_none":            "No active loans.",
		"loans_header":          "🤝 Active loans:",
		"loan_created":          "✅ Loan created: {amount} {cur}{approx} to {person} · {n} installments · first due {due}",
		"loan_ask_installments": "Great. How many installments? (example: 3)",
		"loan_ask_first_due":    "What is the first due date? Format YYYY-MM-DD. Example: 2026-01-15",
		"loan_bad_date":         "Invalid date. Use YYYY-MM-DD. Example: 2026-01-15",
		"loan_bad_installments": "I didn't get the installments. Send just a number (example: 3).",

		"card_ask": "💳 Which card was this expense on?\n" +
			"Reply with 1, 2, 3...\n\n" +
			"{cards}\n\n" +
			"0) No card\n" +
			"C) Cancel",
		"card_linked":    "✅ Done. I linked the transaction to card: {card}.",
		"card_skip":      "👌 Ok, I'll keep it with no card.",
		"card_not_found": "I didn't get that. Reply 1, 2, 3... or 0 for no card, or C to cancel.",
		"card_no_cards":  "You don't have cards created on the web. Create one in Cards and try again.",
		"card_pay_ask": "💳 Which card are you paying?\n" +
			"Reply with 1, 2, 3...\n\n" +
			"{cards}\n\n" +
			"C) Cancel",
		"card_pay_not_found":           "I didn't get that. Reply 1, 2, 3... or C to cancel.",
		"card_payment_applied":         "✅ Done. I recorded the payment and applied it to {card}. ID: {id}",
		"card_payment_missing_balance": "✅ Done. I recorded the payment to {card}. ID: {id}",

		"tx_confirm_title": "✅ Before saving, please confirm this is correct:",
		"tx_confirm_actions_expense": "Reply with an option:\n" +
			"1) Save\n" +
			"2) Edit amount\n" +
			"3) Edit currency\n" +
			"4) Edit description\n" +
			"5) Edit card\n" +
			"6) Change type (expense/income)\n" +
			"0) Cancel",
		"tx_confirm_actions_income": "Reply with an option:\n" +
			"1) Save\n" +
			"2) Edit amount\n" +
			"3) Edit currency\n" +
			"4) Edit description\n" +
			"6) Change type (expense/income)\n" +
			"0) Cancel",
		"tx_confirm_actions_payment": "Reply with an option:\n" +
			"1) Save\n" +
			"2) Edit amount\n" +
			"3) Edit currency\n" +
			"5) Edit card\n" +
			"0) Cancel",
		"tx_cancel_ok":             "🚫 Ok, canceled. Nothing was saved.",
		"tx_edit_amount_ask":       "💰 Tell me the amount. Examples: 3290  |  3,290  |  12 USD\nC) Cancel",
		"tx_edit_currency_ask":     "💱 Which currency? Reply CLP or USD.\nC) Cancel",
		"tx_edit_desc_ask":         "📝 Tell me the description.\nC) Cancel",
		"tx_edit_kind_ask":         "🔄 Which type? Reply: Expense or Income.\nC) Cancel",
		"tx_need_card_for_payment": "To record a card payment you must choose a card. If you don't have one, create it on the web (Cards).",
		"tx_bad_amount":            "I didn't get the amount. Examples: 3290  |  3,290  |  12 USD",
		"tx_try_again":             "Something failed on my side. Please try again in a moment.",

		"cat_unknown": "🔎 I couldn't find a category for: *{kw}*\n\n" +
			"What do you want to do?\n" +
			"1) Link to an existing category\n" +
			"2) Create a new category\n" +
			"0) Leave uncategorized\n" +
			"C) Cancel",
		"cat_pick_existing": "📌 Pick a category to link *{kw}*.\n" +
			"Reply with 1, 2, 3...\n\n" +
			"{cats}\n\n" +
			"C) Cancel",
		"cat_new_ask_name": "🆕 What is the new category name?\nC) Cancel",
		"cat_new_pick_existing_budget": "📆 Do you want to create the monthly budget for this category?\n\n" +
			"{buds}\n\n" +
			"N) Set a new amount\n" +
			"0) Don't create now\n" +
			"C) Cancel",
		"cat_new_ask_amount": "💰 Monthly budget amount (CLP)? Example: 150000\nC) Cancel",
		"cat_linked_ok":      "✅ Done. Linked *{kw}* to category: {cat}.",
		"cat_created_ok":     "✅ Category created: {cat}.",
		"cat_skipped":        "👌 Ok, leaving it uncategorized.",
		"cat_invalid":        "I didn't get that. Reply with a number or C to cancel.",
		"cat_no_categories":  "No categories yet. Choose option 2 to create one.",
		"cat_no_budgets":     "No monthly budgets found for this month. You can set a new amount (N) or 0 to skip.",

		"ocr_result_header": "🧾 Text detected in the photo:",
		"ocr_no_text":       "I couldn't detect text in the photo.",
		"ocr_failed":        "I couldn't read that photo right now.",
	},
}
