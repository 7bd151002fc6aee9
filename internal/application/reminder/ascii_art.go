package reminder

import "math/rand/v2"

var artCollection = []string{
	`  (\____/)
  ( ͡° ͜ʖ ͡°)
  />    \>  FACTURA TIME!`,

	`    ∧＿∧
  ( ・∀・) Invoice o'clock!
  /    つ
 (  /   )
  しーJ`,

	`  ┌───────────┐
  │  $$$$$$$  │
  │  FACTURA  │
  │   TIME!   │
  └───────────┘
    (\__/)  ||
    (•ㅅ•)  ||
    / 　 づ`,

	`  ╔══════════════╗
  ║  TAX SEASON!  ║
  ║   ¯\_(ツ)_/¯  ║
  ╚══════════════╝`,

	`  ┏━━━━━━━━━━━━━━┓
  ┃  SAT is       ┃
  ┃  watching...  ┃
  ┃    (⌐■_■)     ┃
  ┗━━━━━━━━━━━━━━┛`,

	` ░░░░░░░░░░░░░░░░
 ░ HOLA SAT ░░░░░░
 ░░░░░░░░░░░░░░░░
   \(°□°)/
    |   |
   / \ / \`,

	`  ☆ﾟ.*･｡ﾟ FACTURA ☆ﾟ.*･｡ﾟ
     (\__/)
     (>.<)  Hazla ya!
    ⊂(  )⊃
     (_)(_)`,

	`    ___________
   |           |
   | FACTURA!! |
   |___________|
   (\__/) ||
   (•ㅅ•) ||
   / 　 づ`,

	`  ▄▄▄▄▄▄▄▄▄▄▄▄▄
  █ DON'T FORGET █
  █  YOUR CFDI!  █
  ▀▀▀▀▀▀▀▀▀▀▀▀▀
    \( ⚆ _ ⚆ )/`,

	`     /\_/\
    ( o.o )
     > ^ <  meow...
  Haz tu factura`,

	`  ┌──────────┐
  │ CTRL + F │
  │ (Factura) │
  └──────────┘
  ( •_•)>⌐■-■
  (⌐■_■)`,

	`  (╯°□°)╯︵ ┻━┻
  ¡FACTURA PENDIENTE!
  ┬─┬ノ( º _ ºノ)
  ok ya la hago...`,

	`   ___
  |SAT|  ⚡ REMINDER ⚡
  |___|
  (  ͡° ͜ʖ ͡° )つ━☆
  Make that invoice!`,

	`  IT'S THAT TIME AGAIN...
     .-"-.
    /|6 6|\
   {/(_0_)\}
    _/{" "}\_
   }\/  /\/{
   FACTURA NOW!`,

	`  ╭━━━╮
  ┃ $ ┃  HEY!
  ╰━━━╯  Invoice time
  ʕ•ᴥ•ʔ  Don't forget!`,
}

// RandomArt devuelve un arte ASCII de la colección al azar.
func RandomArt() string {
	return artCollection[rand.IntN(len(artCollection))]
}
