package engine

// DefaultTemplateName is the name given to the built-in weekly template.
const DefaultTemplateName = "週1営業テンプレート（木曜基準）"

// DefaultTemplate returns the built-in weekly workflow of the shop, phase by
// phase from deciding the opening day a week out to closing the register.
// All rules are relative to the week's business day.
func DefaultTemplate() []TemplateTaskDef {
	return []TemplateTaskDef{
		{
			TitleJA: "営業日決定",
			BodyJA:  "次回の営業日を決定する",
			DueRule: "-7 days 18:00",
			Tag:     "Planning",
			Checklist: []TemplateChecklistDef{
				{TextJA: "営業日を決める", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "ラインナップ決定",
			BodyJA:  "次回のラインナップを決める（営業日の翌日）",
			DueRule: "+1 days 18:00",
			Tag:     "Planning",
			Checklist: []TemplateChecklistDef{
				{TextJA: "営業日の翌日に次回のラインナップを決める", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "Instagram投稿: 営業日とラインナップ案内",
			BodyJA:  "Instagramに営業日とラインナップの案内を投稿",
			DueRule: "-6 days 18:00",
			Tag:     "Promotion",
			Checklist: []TemplateChecklistDef{
				{TextJA: "Instagramに営業日とラインナップの案内を投稿", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "公式LINE: お取り置き案内配信",
			BodyJA:  "公式LINEでお取り置きの案内を配信",
			DueRule: "-4 days 20:00",
			Tag:     "Promotion",
			Checklist: []TemplateChecklistDef{
				{TextJA: "公式LINEでお取り置きの案内を配信", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "取り置き対応",
			BodyJA:  "お取り置きの申込者への返信と集計",
			DueRule: "-4 days 10:00",
			Tag:     "Reservation",
			Checklist: []TemplateChecklistDef{
				{TextJA: "お取り置きの申込者に返信", DefaultAssignee: "role:admin"},
				{TextJA: "お取り置きの集計をスプレッドシートに入力", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "製造数量決定",
			BodyJA:  "お取り置きの数を踏まえ、作る数を検討し、味ごとに決める",
			DueRule: "-2 days 18:00",
			Tag:     "Planning",
			Checklist: []TemplateChecklistDef{
				{TextJA: "お取り置きの数を踏まえ、作る数を検討", DefaultAssignee: "role:admin"},
				{TextJA: "味ごとに作る数を決める", DefaultAssignee: "role:admin"},
				{TextJA: "数確定後、スタッフに作る個数をスタッフLINEにて共有", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "材料準備と発注",
			BodyJA:  "必要な材料を計算し、発注する",
			DueRule: "-3 days 10:00",
			Tag:     "Prep",
			Checklist: []TemplateChecklistDef{
				{TextJA: "スプレッドシートの表を印刷", DefaultAssignee: "role:coadmin"},
				{TextJA: "必要な材料を計算", DefaultAssignee: "role:coadmin"},
				{TextJA: "具材の在庫を確認して何を仕込むべきか、足りない分を計算", DefaultAssignee: "role:coadmin"},
				{TextJA: "材料の発注(サンヨネ、ワルツ、cotta、いちご農家さん)", DefaultAssignee: "role:admin"},
				{TextJA: "いちご農家さんへはLINEで連絡して発注", DefaultAssignee: "role:admin"},
			},
		},
		{
			TitleJA: "仕込み作業",
			BodyJA:  "材料の仕込み、計量",
			DueRule: "-1 days 14:00",
			Tag:     "Prep",
			Checklist: []TemplateChecklistDef{
				{TextJA: "材料の仕込み、計量", DefaultAssignee: "role:coadmin"},
			},
		},
		{
			TitleJA: "販売準備",
			BodyJA:  "値札、つり銭、レジ、紙袋の準備",
			DueRule: "-1 days 18:00",
			Tag:     "Prep",
			Checklist: []TemplateChecklistDef{
				{TextJA: "値札の確認、無ければ作成", DefaultAssignee: "role:admin"},
				{TextJA: "つり銭の準備", DefaultAssignee: "role:admin"},
				{TextJA: "レジiPadの充電と準備", DefaultAssignee: "role:admin"},
				{TextJA: "紙袋にスタンプを押す", DefaultAssignee: "role:coadmin"},
			},
		},
		{
			TitleJA: "焼成作業",
			BodyJA:  "販売日当日にバナナブレッドとマフィンを焼く",
			DueRule: "0 days 10:30",
			Tag:     "Prep",
			Checklist: []TemplateChecklistDef{
				{TextJA: "販売日当日にバナナブレッドとマフィンを焼く", DefaultAssignee: "role:coadmin"},
				{TextJA: "取り置き分と当日分とを分けて番重に入れる", DefaultAssignee: "role:coadmin"},
			},
		},
		{
			TitleJA: "開店準備",
			BodyJA:  "開店前の準備作業",
			DueRule: "0 days 13:00",
			Tag:     "Opening",
			Checklist: []TemplateChecklistDef{
				{TextJA: "商品とつり銭、iPadをお店に運ぶ", DefaultAssignee: "role:coadmin"},
				{TextJA: "見本用の商品をショーケースに並べる", DefaultAssignee: "role:coadmin"},
				{TextJA: "番重を置く", DefaultAssignee: "role:coadmin"},
				{TextJA: "お店の床の掃き掃除", DefaultAssignee: "role:worker"},
				{TextJA: "ショーケース、カウンター、棚、キッズスペースの拭き掃除", DefaultAssignee: "role:coadmin"},
				{TextJA: "お絵描きボードの用紙を替える", DefaultAssignee: "role:coadmin"},
				{TextJA: "傘立てとプレートをお店の外に出す", DefaultAssignee: "role:worker"},
				{TextJA: "駐車場の岩を移動させる", DefaultAssignee: "role:worker"},
				{TextJA: "駐車場のプレートを並べる", DefaultAssignee: "role:worker"},
				{TextJA: "レジの準備", DefaultAssignee: "role:coadmin"},
				{TextJA: "調理器具を洗う", DefaultAssignee: "role:worker"},
				{TextJA: "乾いた調理器具を拭く、しまう", DefaultAssignee: "role:worker"},
				{TextJA: "マフィンの型を拭く", DefaultAssignee: "role:worker"},
				{TextJA: "マフィンの型を洗う", DefaultAssignee: "role:worker"},
				{TextJA: "シンクを洗う", DefaultAssignee: "role:worker"},
				{TextJA: "排水口のネットを替える", DefaultAssignee: "role:worker"},
				{TextJA: "床の拭き掃除", DefaultAssignee: "role:coadmin"},
				{TextJA: "作業台の水拭き", DefaultAssignee: "role:coadmin"},
				{TextJA: "在庫数を確認して共有メモに数を入力", DefaultAssignee: "role:coadmin"},
			},
		},
		{
			TitleJA: "販売業務",
			BodyJA:  "接客と販売業務",
			DueRule: "0 days 14:00",
			Tag:     "Sales",
			Checklist: []TemplateChecklistDef{
				{TextJA: "時間になったらお店を開けて販売開始", DefaultAssignee: "role:coadmin"},
				{TextJA: "接客をする", DefaultAssignee: "role:coadmin"},
				{TextJA: "一人ずつ注文を受けレジに入力", DefaultAssignee: "role:coadmin"},
				{TextJA: "お客様に合計金額を伝える", DefaultAssignee: "role:coadmin"},
				{TextJA: "食品の袋詰め", DefaultAssignee: "role:coadmin"},
				{TextJA: "マフィンのおいしい食べ方を同封することを伝える", DefaultAssignee: "role:coadmin"},
			},
		},
		{
			TitleJA: "販売中のSNS対応",
			BodyJA:  "在庫状況の投稿と取り置き対応",
			DueRule: "0 days 15:00",
			Tag:     "Promotion",
			Checklist: []TemplateChecklistDef{
				{TextJA: "客足が落ち着いたら在庫数をInstagramのストーリーズに投稿する", DefaultAssignee: "role:coadmin"},
				{TextJA: "数に余裕があれば当日の取り置き案内をInstagramと公式LINEにて配信する", DefaultAssignee: "role:admin"},
				{TextJA: "お取り置きの連絡があれば返信する", DefaultAssignee: "role:admin"},
				{TextJA: "完売した場合はInstagramのストーリーズに投稿する", DefaultAssignee: "role:admin"},
				{TextJA: "接客の合間に次回の営業案内文を作成する", DefaultAssignee: "role:coadmin"},
			},
		},
		{
			TitleJA: "閉店作業",
			BodyJA:  "閉店後の片付けと締め",
			DueRule: "0 days 17:00",
			Tag:     "Closing",
			Checklist: []TemplateChecklistDef{
				{TextJA: "時間になったら閉店", DefaultAssignee: "role:coadmin"},
				{TextJA: "商品が余っていたら冷凍用に袋に入れる", DefaultAssignee: "role:coadmin"},
				{TextJA: "レジ閉め", DefaultAssignee: "role:admin"},
				{TextJA: "カウンターとショーケースの拭き掃除", DefaultAssignee: "role:coadmin"},
				{TextJA: "床の掃き掃除", DefaultAssignee: "role:coadmin"},
				{TextJA: "駐車場のプレートを片付ける", DefaultAssignee: "role:worker"},
				{TextJA: "駐車場の岩を移動させる", DefaultAssignee: "role:worker"},
				{TextJA: "番重を工房へ運ぶ", DefaultAssignee: "role:coadmin"},
				{TextJA: "番重の拭き掃除", DefaultAssignee: "role:coadmin"},
				{TextJA: "商品が余っていたら冷凍庫へ入れる", DefaultAssignee: "role:coadmin"},
			},
		},
	}
}
