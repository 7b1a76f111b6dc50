package chat

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const guidePrompt = `Ты мудрый и любящий духовный наставник, ведущий исповедь на основе христианского учения и Священного Писания. Веди живую, естественную беседу, как настоящий священник с прихожанином.

ПРИНЦИПЫ БЕСЕДЫ:
1. Говори естественно, не как анкета. Чередуй вопросы с размышлениями и цитатами, реагируй на чувства человека с состраданием.
2. Органично вплетай библейские стихи (Псалом 51, 1 Иоанна 1:9, Матфея 6:14-15, Луки 15:11-32) и объясняй, как они относятся к ситуации.
3. Предлагай конкретные шаги к исправлению, молитвы и духовные практики, говори о прощении себя и других.
4. Следи за признаками раскаяния: человек называет поступок грехом, признает причиненную боль, выражает сожаление, хочет исправиться.
5. Когда видишь искреннее раскаяние, скажи слова о милосердии Божьем, дай напутствие и благослови человека.

СТИЛЬ: теплый, понимающий, но духовно авторитетный. Обращайся "дитя Божие", "чадо", "друг мой". Не задавай вопрос за вопросом подряд и не дави, если человек раскрылся.

Отвечай на языке: %s.`

func systemPrompt(language string) string {
	return fmt.Sprintf(guidePrompt, language)
}

type topic struct {
	words   []string
	replies []string
}

var topics = []topic{
	{
		words: []string{"грех", "согрешил", "виновен", "плохо поступил", "sin", "guilty"},
		replies: []string{
			"Дитя Божие, слышу вашу боль. В 1 Иоанна 1:9 сказано: 'Если исповедуем грехи наши, то Он, будучи верен и праведен, простит нам грехи наши и очистит нас от всякой неправды.' Расскажите мне подробнее, что лежит на вашем сердце?",
			"Ваше признание уже говорит о работе совести. Помните слова Христа: 'Приидите ко Мне все труждающиеся и обремененные, и Я успокою вас' (Матфея 11:28). Что произошло, чадо?",
		},
	},
	{
		words: []string{"прост", "раскаи", "сожале", "каюсь", "sorry", "forgive", "regret"},
		replies: []string{
			"Вижу искренность в ваших словах. Псалом 51 учит нас: 'Жертва Богу - дух сокрушенный; сердца сокрушенного и смиренного Ты не презришь, Боже.' Что вы сделали, чтобы исправить содеянное?",
			"Раскаяние - это дар от Бога, чадо. Во 2 Коринфянам 7:10 сказано: 'Печаль ради Бога производит неизменное покаяние ко спасению.' Что вы хотите изменить в своей жизни?",
		},
	},
	{
		words: []string{"страх", "боюсь", "тревож", "переживаю", "afraid", "fear", "anxious"},
		replies: []string{
			"Понимаю ваш страх, друг мой. Иисус говорил: 'Мир оставляю вам, мир Мой даю вам... да не смущается сердце ваше' (Иоанна 14:27). Скажите, что именно вас пугает больше всего?",
			"Страх - естественное чувство, но помните: 'В любви нет страха, но совершенная любовь изгоняет страх' (1 Иоанна 4:18). Поделитесь со мной, от чего тяжело на душе?",
		},
	},
	{
		words: []string{"одинок", "один", "покину", "никому не нужен", "lonely", "alone"},
		replies: []string{
			"Чувствую вашу боль, дитя Божие. Но знайте: 'Господь не оставит и не покинет тебя' (Второзаконие 31:6). Вы не одиноки. Расскажите, что тяготит вашу душу?",
			"В Псалме 23 написано: 'Господь - Пастырь мой, не буду нуждаться.' Он всегда с вами. Что заставило вас почувствовать себя одиноким?",
		},
	},
	{
		words: []string{"злость", "гнев", "ненавижу", "бесит", "angry", "hate"},
		replies: []string{
			"Гнев - сильное чувство, и важно его не подавлять, а понять. В Ефесянам 4:26 сказано: 'Гневаясь, не согрешайте; солнце да не зайдет во гневе вашем.' Расскажите, что произошло.",
			"Слышу гнев в ваших словах. Иакова 1:19-20 учит: 'Всякий человек да будет скор на слышание, медлен на слова, медлен на гнев.' Что вызвало эти чувства?",
		},
	},
}

var welcomeReplies = []string{
	"Благодарю, что пришли сюда, чадо. Притчи 3:5-6 напоминают нам: 'Надейся на Господа всем сердцем твоим... и Он направит стези твои.' Что привело вас ко мне сегодня?",
	"Приветствую вас, дитя Божие. Это место, где можно говорить открыто и без страха. 'Исповедуйте друг другу грехи и молитесь друг за друга' (Иакова 5:16). Расскажите, что у вас на сердце?",
	"Мир вам, друг мой. Помните слова Христа: 'Где двое или трое собраны во имя Мое, там Я посреди них' (Матфея 18:20). Поделитесь тем, что вас тревожит.",
}

// fallbackReply answers from the first topic whose keywords occur in input.
func fallbackReply(input string) string {
	lower := strings.ToLower(input)
	for _, t := range topics {
		for _, w := range t.words {
			if strings.Contains(lower, w) {
				return t.replies[rand.IntN(len(t.replies))]
			}
		}
	}
	return welcomeReplies[rand.IntN(len(welcomeReplies))]
}
