package story

// DefaultCatalog returns the authored "day in a village" narrative.
// All content is compiled in; chapters are never edited at runtime.
func DefaultCatalog() *Catalog {
	return NewCatalog(chapterMorning, chapterTea)
}

var chapterMorning = Chapter{
	ID:    "morning",
	Title: "Иртә авылда — Утро в деревне",
	Parts: []Part{
		{
			Kind: KindInfo,
			Text: "Хәерле иртә! Доброе утро!\n\n" +
				"Ты просыпаешься в деревенском доме у бабушки. За окном поют петухи, " +
				"пахнет свежим хлебом. Сегодня ты проведёшь целый день в татарской деревне — " +
				"и выучишь свои первые фразы на татарском.",
			Image: "village_morning.jpg",
		},
		{
			Kind:  KindInfoImage,
			Text:  "Солнце поднимается над рекой. Әби (бабушка) уже хлопочет во дворе.",
			Image: "sunrise.jpg",
		},
		{
			Kind: KindInfo,
			Text: "Первое слово на сегодня:\n\n*Исәнмесез* — «здравствуйте».\n\n" +
				"Так здороваются со старшими и с незнакомыми людьми. Послушай, как это звучит.",
			Voice: "isanmesez.ogg",
		},
		{
			Kind: KindChoice,
			Text: "Ты выходишь во двор, навстречу идёт сосед-агай. Как ты его поприветствуешь?",
			Options: []Option{
				{
					Label:    "Исәнмесез!",
					Correct:  true,
					Feedback: "Дөрес! Правильно — со старшими здороваются «Исәнмесез».",
				},
				{
					Label:    "Сау бул!",
					Feedback: "«Сау бул» — это «до свидания». Сосед только пришёл!",
				},
				{
					Label:    "Рәхмәт!",
					Feedback: "«Рәхмәт» значит «спасибо». Благодарить пока не за что.",
				},
			},
			Reward: 5,
		},
		{
			Kind: KindInfo,
			Text: "Сосед улыбается и отвечает: «Хәерле иртә!» — «Доброе утро!»\n\n" +
				"Запомни: *хәерле иртә* — доброе утро, *хәерле көн* — добрый день.",
			Voice: "khaerle_irta.ogg",
		},
		{
			Kind: KindText,
			Text: "Әби выносит тебе тёплый өчпочмак и спрашивает, помнишь ли ты, " +
				"как пожелать доброго утра. Напиши это по-татарски.",
			Answers: []string{"хәерле иртә", "хаерле ирта"},
			Match:   MatchExact,
			Praise:  "Дөрес! Хәерле иртә — доброе утро!",
			Reward:  8,
		},
		{
			Kind:  KindInfoImage,
			Text:  "Әби довольна. Она ставит самовар — скоро будет чай.",
			Image: "samovar.jpg",
		},
		{
			Kind: KindPhrase,
			Text: "За өчпочмак надо поблагодарить. Собери фразу «большое спасибо»: " +
				"*зур* (большое) + *рәхмәт* (спасибо).",
			Answers: []string{"зур рәхмәт", "зур рахмат"},
			Match:   MatchContains,
			Praise:  "Бик яхшы! Очень хорошо!",
			Reward:  10,
		},
		{
			Kind: KindInfo,
			Text: "Утро удалось! Ты уже умеешь здороваться, желать доброго утра и благодарить. " +
				"Дальше — чаепитие у әби.",
		},
	},
}

var chapterTea = Chapter{
	ID:    "tea",
	Title: "Әби белән чәй — Чай у бабушки",
	Parts: []Part{
		{
			Kind: KindInfo,
			Text: "Чәй эчәргә рәхим итегез! Добро пожаловать к чаю!\n\n" +
				"В татарском доме чай — это целый ритуал. На столе чак-чак, мёд и варенье. " +
				"Әби разливает чай из самовара.",
			Image: "tea_table.jpg",
		},
		{
			Kind: KindChoice,
			Text: "Әби протягивает тебе пиалу и спрашивает: «Чәй эчәсеңме?» — «Будешь чай?» " +
				"Как согласиться?",
			Options: []Option{
				{
					Label:    "Әйе, рәхмәт!",
					Correct:  true,
					Feedback: "Дөрес! «Әйе» — да, и не забыл поблагодарить.",
				},
				{
					Label:    "Юк",
					Feedback: "«Юк» — это «нет». Отказаться от чая у әби — обидеть её!",
				},
			},
			Reward: 5,
		},
		{
			Kind:  KindInfoImage,
			Text:  "Горячий чай с молоком, как принято в деревне. Әби подвигает чак-чак поближе.",
			Image: "chak_chak.jpg",
		},
		{
			Kind: KindInfo,
			Text: "Новое слово: *зинһар* — «пожалуйста».\n\n" +
				"Вежливая просьба по-татарски строится так: «Миңа чәй бирегез, зинһар» — " +
				"«Дайте мне чаю, пожалуйста».",
			Voice: "zinhar.ogg",
		},
		{
			Kind: KindTeaRequest,
			Text: "Пиала опустела, а чаю хочется ещё. Попроси әби налить ещё чашку — " +
				"и обязательно вежливо!",
			RequiredToken: "зинһар",
			Praise:        "Бик әйбәт! Әби с улыбкой наливает тебе ещё чаю.",
			Reward:        10,
		},
		{
			Kind: KindText,
			Text: "Чаепитие подходит к концу. Поблагодари әби по-татарски.",
			Answers: []string{"рәхмәт", "рахмат", "зур рәхмәт"},
			Match:   MatchContains,
			Praise:  "Дөрес! Әби рада гостю, который говорит по-татарски.",
			Reward:  8,
		},
		{
			Kind: KindInfo,
			Text: "Сау булыгыз! До свидания!\n\n" +
				"Ты провёл чудесный день в деревне. Возвращайся — әби всегда рада гостям.",
		},
	},
}
