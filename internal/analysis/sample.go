package analysis

// SampleDuration is the recorded length of SampleTranscript in seconds.
const SampleDuration = 52

// SampleTranscript is the demo introduction used by the sample endpoint and
// the demo command.
const SampleTranscript = "Hello everyone, myself Muskan, studying in class 8th B section from Christ Public School. \n" +
	"I am 13 years old. I live with my family. There are 3 people in my family, me, my mother and my father.\n" +
	"One special thing about my family is that they are very kind hearted to everyone and soft spoken. One thing I really enjoy is play, playing cricket and taking wickets.\n" +
	"A fun fact about me is that I see in mirror and talk by myself. One thing people don't know about me is that I once stole a toy from one of my cousin.\n" +
	"My favorite subject is science because it is very interesting. Through science I can explore the whole world and make the discoveries and improve the lives of others. \n" +
	"Thank you for listening."
